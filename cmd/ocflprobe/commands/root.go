package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ocflprobe/pkg/config"
	"ocflprobe/pkg/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	// 全局日志器，在 PersistentPreRunE 中按配置创建
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ocflprobe",
	Short: "Round-trip correctness probe for a versioned object store on S3",
	Long: `ocflprobe writes a 100 MiB artifact as the first version of a fresh urn:uuid object,
downloads the head version back to <work-dir>/<uuid>/ and verifies the file size.
Exit code 0 means the round trip passed, 1 means any step failed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		used, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		logger, err = logging.New(cmd.ErrOrStderr(), viper.GetString(config.KeyLogLevel), viper.GetString(config.KeyLogFormat))
		if err != nil {
			return err
		}
		if used != "" {
			logger.WithField("path", used).Debug("using config file")
		}
		return nil
	},
	RunE: runProbe,
}

// Execute 是入口
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	var logged loggedError
	switch {
	case err == nil, errors.As(err, &logged):
	case logger != nil:
		logger.WithError(err).Error("command failed")
	default:
		// 日志器还没建好 (配置或参数错误)
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// loggedError 标记已经写过日志的错误，避免重复输出
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.ocflprobe/config.yaml)")

	// 连接参数：--non-interactive 时使用，否则交互式询问
	pf.String("profile", "", "AWS shared config profile")
	pf.String("region", "", "AWS region")
	pf.String("endpoint", "", "S3-compatible endpoint URL (e.g. http://localhost:9000)")
	pf.String("bucket", "", "bucket name")
	pf.String("prefix", "", "key prefix inside the bucket")

	pf.String("driver", "", "storage driver: s3, minio or disk")
	pf.String("storage-path", "", "root directory for the disk driver")
	pf.String("work-dir", "", "local working directory (default ocfl-s3-test)")
	pf.String("history-dsn", "", "run history database (sqlite file or postgres:// URL)")
	pf.String("log-level", "", "log level: trace, debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")

	bindFlags(pf, map[string]string{
		config.KeyProfile:     "profile",
		config.KeyRegion:      "region",
		config.KeyEndpoint:    "endpoint",
		config.KeyBucket:      "bucket",
		config.KeyPrefix:      "prefix",
		config.KeyDriver:      "driver",
		config.KeyStoragePath: "storage-path",
		config.KeyWorkDir:     "work-dir",
		config.KeyHistoryDSN:  "history-dsn",
		config.KeyLogLevel:    "log-level",
		config.KeyLogFormat:   "log-format",
	})

	f := rootCmd.Flags()
	f.Bool("non-interactive", false, "read the connection from config/env/flags instead of prompting")
	f.Int64("size", 0, "artifact size in bytes (default 100 MiB)")
	f.Uint64("seed", 0, "seed for the generated artifact content")
	bindFlags(f, map[string]string{
		config.KeyNonInteractive: "non-interactive",
		config.KeyProbeSize:      "size",
		config.KeyProbeSeed:      "seed",
	})
}

// bindFlags 把命令行参数绑定到 Viper 的 Key
// 这样用户既可以在 yaml 里写，也可以用环境变量或参数覆盖
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(name)); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}
