package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// 配置项的 Key，环境变量为 OCFLPROBE_ 前缀加上大写并把 "." 换成 "_"
// 例如 s3.bucket -> OCFLPROBE_S3_BUCKET
const (
	KeyProfile  = "s3.profile"
	KeyRegion   = "s3.region"
	KeyEndpoint = "s3.endpoint"
	KeyBucket   = "s3.bucket"
	KeyPrefix   = "s3.prefix"

	// 静态凭证，只在 CI / MinIO 场景下使用，设置后优先于 profile
	KeyAccessKeyID     = "s3.access_key_id"
	KeySecretAccessKey = "s3.secret_access_key"

	KeyDriver      = "storage.driver"
	KeyStoragePath = "storage.path"

	KeyWorkDir   = "work.dir"
	KeyProbeSize = "probe.size"
	KeyProbeSeed = "probe.seed"

	KeyPartSize    = "transfer.part_size"
	KeyConcurrency = "transfer.concurrency"
	KeyChecksum    = "transfer.checksum"

	KeyChunkMin = "chunker.min_size"
	KeyChunkAvg = "chunker.avg_size"
	KeyChunkMax = "chunker.max_size"

	KeyRedisURL = "cache.redis_url"
	KeyCacheTTL = "cache.ttl"

	KeyHistoryDSN = "history.dsn"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"

	KeyNonInteractive = "non_interactive"
)

const EnvPrefix = "OCFLPROBE"

// Load 初始化 Viper 配置
// cfgFile: 可选，用户显式指定的配置文件路径
// 返回实际使用的配置文件路径，没有找到配置文件时为空
func Load(cfgFile string) (string, error) {
	// 1. 设置默认值 (Defaults)
	setDefaults()

	// 2. 配置搜索路径
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}

		// 搜索顺序：当前目录 -> ./.ocflprobe -> ~/.ocflprobe
		viper.AddConfigPath(".")
		viper.AddConfigPath(".ocflprobe")
		viper.AddConfigPath(filepath.Join(home, ".ocflprobe"))

		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// 3. 读取环境变量 (OCFLPROBE_S3_BUCKET 等)
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 4. 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		// 没找到配置文件不算错，可能全靠环境变量和命令行
		// 但如果是配置文件格式错，那就是错
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("fatal error config file: %w", err)
	}
	return viper.ConfigFileUsed(), nil
}

func setDefaults() {
	// 连接默认值与交互式提示保持一致
	viper.SetDefault(KeyProfile, "default")
	viper.SetDefault(KeyRegion, "us-east-2")

	viper.SetDefault(KeyDriver, "s3")
	viper.SetDefault(KeyWorkDir, "ocfl-s3-test")
	viper.SetDefault(KeyProbeSize, int64(100*1024*1024))
	viper.SetDefault(KeyProbeSeed, uint64(0))

	// 与 feature/s3/manager 的默认值同量级
	viper.SetDefault(KeyPartSize, int64(8*1024*1024))
	viper.SetDefault(KeyConcurrency, 5)
	viper.SetDefault(KeyChecksum, true)

	viper.SetDefault(KeyChunkMin, 2*1024*1024)
	viper.SetDefault(KeyChunkAvg, 8*1024*1024)
	viper.SetDefault(KeyChunkMax, 32*1024*1024)

	viper.SetDefault(KeyCacheTTL, 24*time.Hour)

	viper.SetDefault(KeyLogLevel, "info")
	viper.SetDefault(KeyLogFormat, "text")
}
