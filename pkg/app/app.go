package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"ocflprobe/pkg/chunker"
	"ocflprobe/pkg/config"
	"ocflprobe/pkg/layout"
	"ocflprobe/pkg/probe"
	"ocflprobe/pkg/repository"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/storage/cache"
	"ocflprobe/pkg/storage/disk"
	"ocflprobe/pkg/storage/minio"
	s3adapter "ocflprobe/pkg/storage/s3"
	"ocflprobe/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// 支持的存储驱动
const (
	DriverS3    = "s3"
	DriverMinio = "minio"
	DriverDisk  = "disk"
)

// Options 是连接参数之外的构建选项
type Options struct {
	Driver      string
	StoragePath string // disk 驱动的根目录，Bucket 是它下面的一个子目录

	AccessKeyID     string
	SecretAccessKey string

	PartSize    int64
	Concurrency int
	Checksum    bool
	Chunker     chunker.Options

	RedisURL string
	CacheTTL time.Duration

	// Debug 打开 SDK 请求日志
	Debug  bool
	Logger logrus.FieldLogger
}

// OptionsFromViper 从配置中读取构建选项
func OptionsFromViper() Options {
	return Options{
		Driver:          viper.GetString(config.KeyDriver),
		StoragePath:     viper.GetString(config.KeyStoragePath),
		AccessKeyID:     viper.GetString(config.KeyAccessKeyID),
		SecretAccessKey: viper.GetString(config.KeySecretAccessKey),
		PartSize:        viper.GetInt64(config.KeyPartSize),
		Concurrency:     viper.GetInt(config.KeyConcurrency),
		Checksum:        viper.GetBool(config.KeyChecksum),
		Chunker: chunker.Options{
			MinSize: viper.GetInt(config.KeyChunkMin),
			AvgSize: viper.GetInt(config.KeyChunkAvg),
			MaxSize: viper.GetInt(config.KeyChunkMax),
		},
		RedisURL: viper.GetString(config.KeyRedisURL),
		CacheTTL: viper.GetDuration(config.KeyCacheTTL),
		Debug:    viper.GetString(config.KeyLogLevel) == "trace",
	}
}

// App 是整个应用程序的依赖容器
// 它持有绑定到某个 Bucket 和工作目录的版本化存储客户端
type App struct {
	*repository.Repository

	Backend storage.Backend
	Layout  layout.Layout
	Conn    types.Connection
	WorkDir string
	TempDir string

	closers []io.Closer
}

// NewClient 是工厂函数：把连接参数组装成一个版本化存储客户端
//
//  1. 创建 <workDir>/ocfl-temp
//  2. 解析凭证 (profile 或静态凭证)
//  3. 构建绑定 Region / Endpoint 的传输层
//  4. 包装成 Bucket + Prefix 下、使用 hashed-n-tuple 布局的后端
//  5. 绑定工作目录
//
// 除凭证解析外不做网络请求
func NewClient(ctx context.Context, conn types.Connection, workDir string, opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	conn = conn.WithDefaults()
	if err := conn.Validate(); err != nil {
		return nil, probe.Wrap(probe.KindConfig, "invalid connection", err)
	}

	// 1. 工作目录
	tempDir := filepath.Join(workDir, probe.TempDirName)
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, probe.Wrap(probe.KindIO, "failed to create work dir", err)
	}

	// 2 + 3. 传输层与后端
	backend, err := initStore(ctx, conn, workDir, opts)
	if err != nil {
		var credErr *storage.CredentialsError
		if errors.As(err, &credErr) {
			return nil, probe.Wrap(probe.KindCredentials, "failed to create client", err)
		}
		return nil, probe.Wrap(probe.KindConfig, "failed to create client", err)
	}

	a := &App{Conn: conn, WorkDir: workDir, TempDir: tempDir}

	// 4. 可选的 Redis 存在性缓存
	if opts.RedisURL != "" {
		cached, err := cache.NewCachedStore(backend, cache.Config{RedisURL: opts.RedisURL, TTL: opts.CacheTTL}, opts.Logger)
		if err != nil {
			return nil, probe.Wrap(probe.KindConfig, "failed to connect cache", err)
		}
		a.closers = append(a.closers, cached)
		backend = cached
	}

	// 布局是固定的，不可配置
	l, err := layout.NewHashedNTuple(layout.DefaultHashedNTupleConfig())
	if err != nil {
		return nil, probe.Wrap(probe.KindConfig, "invalid layout", err)
	}

	// 5. 绑定工作目录
	repoOpts := []repository.Option{
		repository.WithLogger(opts.Logger),
		repository.WithConcurrency(opts.Concurrency),
	}
	if opts.Chunker != (chunker.Options{}) {
		repoOpts = append(repoOpts, repository.WithChunkerOptions(opts.Chunker))
	}
	repo, err := repository.New(backend, l, tempDir, repoOpts...)
	if err != nil {
		a.Close()
		return nil, probe.Wrap(probe.KindConfig, "failed to create repository", err)
	}

	a.Repository = repo
	a.Backend = backend
	a.Layout = l
	return a, nil
}

// initStore 根据驱动类型初始化存储后端
func initStore(ctx context.Context, conn types.Connection, workDir string, opts Options) (storage.Backend, error) {
	switch opts.Driver {
	case "", DriverS3:
		client, err := s3adapter.NewClient(ctx, s3adapter.ClientConfig{
			Profile:         conn.Profile,
			Region:          conn.Region,
			Endpoint:        conn.Endpoint,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Debug:           opts.Debug,
			Logger:          opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		return s3adapter.NewAdapter(client, s3adapter.Config{
			Bucket:      conn.Bucket,
			Prefix:      conn.Prefix,
			PartSize:    opts.PartSize,
			Concurrency: opts.Concurrency,
			Checksum:    opts.Checksum,
		}), nil

	case DriverMinio:
		var partSize uint64
		if opts.PartSize > 0 {
			partSize = uint64(opts.PartSize)
		}
		var threads uint
		if opts.Concurrency > 0 {
			threads = uint(opts.Concurrency)
		}
		m, err := minio.NewAdapter(minio.Config{
			Endpoint:        conn.Endpoint,
			Region:          conn.Region,
			Bucket:          conn.Bucket,
			Prefix:          conn.Prefix,
			Profile:         conn.Profile,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			PartSize:        partSize,
			Concurrency:     threads,
		})
		if err != nil {
			return nil, err
		}
		return m, nil

	case DriverDisk:
		root := opts.StoragePath
		if root == "" {
			root = filepath.Join(workDir, "store")
		}
		d, err := disk.NewAdapter(filepath.Join(root, conn.Bucket))
		if err != nil {
			return nil, fmt.Errorf("failed to init storage: %w", err)
		}
		if conn.Prefix == "" {
			return d, nil
		}
		return d.Scope(conn.Prefix), nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", opts.Driver)
	}
}

// Close 释放缓存连接等资源
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
