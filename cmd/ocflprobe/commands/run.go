package commands

import (
	"context"
	"path/filepath"

	"ocflprobe/pkg/app"
	"ocflprobe/pkg/config"
	"ocflprobe/pkg/meta"
	"ocflprobe/pkg/probe"
	"ocflprobe/pkg/prompt"
	"ocflprobe/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// connectionProvider 交互模式下逐项询问，否则直接使用配置
func connectionProvider(cmd *cobra.Command, interactive bool) prompt.Provider {
	if interactive {
		return prompt.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return staticConnection()
}

func staticConnection() prompt.Static {
	return prompt.Static{
		Profile:  viper.GetString(config.KeyProfile),
		Region:   viper.GetString(config.KeyRegion),
		Endpoint: viper.GetString(config.KeyEndpoint),
		Bucket:   viper.GetString(config.KeyBucket),
		Prefix:   viper.GetString(config.KeyPrefix),
	}
}

func workDir() string {
	if dir := viper.GetString(config.KeyWorkDir); dir != "" {
		return dir
	}
	return probe.DefaultWorkDir
}

func runProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	interactive := !viper.GetBool(config.KeyNonInteractive)

	conn, err := connectionProvider(cmd, interactive).Connection(ctx)
	if err != nil {
		err = probe.Wrap(probe.KindConfig, "failed to read configuration", err)
		logFailure(err)
		return loggedError{err}
	}

	out, err := roundTrip(ctx, conn)
	recordHistory(ctx, conn, out, err)
	if err != nil {
		logFailure(err)
		return loggedError{err}
	}
	return nil
}

func roundTrip(ctx context.Context, conn types.Connection) (*probe.Outcome, error) {
	logger.Infof("Creating client using config: %s", conn)

	dir := workDir()
	opts := app.OptionsFromViper()
	opts.Logger = logger

	client, err := app.NewClient(ctx, conn, dir, opts)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	size := viper.GetInt64(config.KeyProbeSize)
	if size <= 0 {
		size = probe.DefaultSize
	}
	runner := probe.NewRunner(client, dir,
		probe.WithSize(size),
		probe.WithSeed(viper.GetUint64(config.KeyProbeSeed)),
		probe.WithLogger(logger),
	)
	return runner.Run(ctx)
}

func logFailure(err error) {
	logger.WithError(err).WithField("kind", probe.KindOf(err).String()).Error("Test failed")
}

// recordHistory 失败只记警告，永远不影响探测结果
func recordHistory(ctx context.Context, conn types.Connection, out *probe.Outcome, runErr error) {
	if out == nil || out.ObjectID == "" {
		return
	}
	dsn := historyDSN()

	db, err := meta.Open(ctx, dsn)
	if err != nil {
		logger.WithError(err).Warn("failed to open run history")
		return
	}
	defer db.Close()

	run, err := meta.NewRun(conn, viper.GetString(config.KeyDriver), out, runErr, map[string]any{
		"part_size":   viper.GetInt64(config.KeyPartSize),
		"concurrency": viper.GetInt(config.KeyConcurrency),
		"chunk_min":   viper.GetInt(config.KeyChunkMin),
		"chunk_avg":   viper.GetInt(config.KeyChunkAvg),
		"chunk_max":   viper.GetInt(config.KeyChunkMax),
		"checksum":    viper.GetBool(config.KeyChecksum),
	})
	if err == nil {
		err = meta.NewRepository(db).RecordRun(ctx, run)
	}
	if err != nil {
		logger.WithError(err).Warn("failed to record run history")
		return
	}
	logger.WithFields(logrus.Fields{"object_id": out.ObjectID, "passed": run.Passed}).Debug("run recorded")
}

func historyDSN() string {
	if dsn := viper.GetString(config.KeyHistoryDSN); dsn != "" {
		return dsn
	}
	return filepath.Join(workDir(), "history.db")
}
