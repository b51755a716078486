package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ocflprobe/pkg/chunker"
	"ocflprobe/pkg/config"
	"ocflprobe/pkg/probe"
	"ocflprobe/pkg/types"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diskOptions(t *testing.T) Options {
	t.Helper()
	logger, _ := test.NewNullLogger()
	return Options{
		Driver:      DriverDisk,
		StoragePath: filepath.Join(t.TempDir(), "buckets"),
		Chunker:     chunker.Options{MinSize: 4 * 1024, AvgSize: 8 * 1024, MaxSize: 64 * 1024},
		Logger:      logger,
	}
}

func TestNewClient_Disk_RoundTrip(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "ocfl-s3-test")
	opts := diskOptions(t)

	a, err := NewClient(context.Background(), types.Connection{Bucket: "test-bucket", Prefix: "runs"}, workDir, opts)
	require.NoError(t, err)
	defer a.Close()

	assert.DirExists(t, filepath.Join(workDir, probe.TempDirName))
	assert.Equal(t, "default", a.Conn.Profile)
	assert.Equal(t, "0004-hashed-n-tuple-storage-layout", a.Layout.Name())

	out, err := probe.NewRunner(a, workDir, probe.WithSize(200*1024), probe.WithLogger(opts.Logger)).Run(context.Background())
	require.NoError(t, err)

	// 对象落在 <bucket>/<prefix>/<hashed-n-tuple root>/ 下
	root, err := a.Layout.ObjectRoot(out.ObjectID)
	require.NoError(t, err)
	head := filepath.Join(opts.StoragePath, "test-bucket", "runs", filepath.FromSlash(root), "refs", "HEAD")
	assert.FileExists(t, head)
}

func TestNewClient_ConfigErrors(t *testing.T) {
	ctx := context.Background()
	workDir := t.TempDir()

	_, err := NewClient(ctx, types.Connection{}, workDir, diskOptions(t))
	assert.ErrorIs(t, err, types.ErrBucketRequired)
	assert.Equal(t, probe.KindConfig, probe.KindOf(err))

	_, err = NewClient(ctx, types.Connection{Bucket: "b", Endpoint: "ftp://x"}, workDir, diskOptions(t))
	assert.Equal(t, probe.KindConfig, probe.KindOf(err))

	opts := diskOptions(t)
	opts.Driver = "ftp"
	_, err = NewClient(ctx, types.Connection{Bucket: "b"}, workDir, opts)
	assert.Equal(t, probe.KindConfig, probe.KindOf(err))
	assert.Contains(t, err.Error(), "unsupported storage driver")

	opts = diskOptions(t)
	opts.Driver = DriverMinio
	_, err = NewClient(ctx, types.Connection{Bucket: "b"}, workDir, opts)
	assert.Error(t, err, "minio 驱动必须有 endpoint")

	opts = diskOptions(t)
	opts.Chunker = chunker.Options{MinSize: 8, AvgSize: 4, MaxSize: 2}
	_, err = NewClient(ctx, types.Connection{Bucket: "b"}, workDir, opts)
	assert.Equal(t, probe.KindConfig, probe.KindOf(err))
}

func TestNewClient_MissingProfile(t *testing.T) {
	// 指向一个空的 shared config，profile 必然不存在
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0600))
	t.Setenv("AWS_CONFIG_FILE", empty)
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", empty)
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	opts := diskOptions(t)
	opts.Driver = DriverS3
	_, err := NewClient(context.Background(), types.Connection{Profile: "does-not-exist", Bucket: "b"}, t.TempDir(), opts)
	require.Error(t, err)
	assert.Equal(t, probe.KindCredentials, probe.KindOf(err))

	// minio 驱动同样在构建阶段解析凭证
	opts.Driver = DriverMinio
	_, err = NewClient(context.Background(), types.Connection{
		Profile:  "does-not-exist",
		Bucket:   "b",
		Endpoint: "http://localhost:9000",
	}, t.TempDir(), opts)
	require.Error(t, err)
	assert.Equal(t, probe.KindCredentials, probe.KindOf(err))
}

func TestNewClient_S3_StaticCredentials(t *testing.T) {
	opts := diskOptions(t)
	opts.Driver = DriverS3
	opts.AccessKeyID = "key"
	opts.SecretAccessKey = "secret"

	a, err := NewClient(context.Background(), types.Connection{
		Bucket:   "b",
		Prefix:   "p",
		Endpoint: "http://localhost:9000",
	}, t.TempDir(), opts)
	require.NoError(t, err, "静态凭证不需要网络")
	assert.Equal(t, "s3://b/p", a.Location())
}

func TestOptionsFromViper(t *testing.T) {
	viper.Reset()
	viper.Set(config.KeyDriver, DriverMinio)
	viper.Set(config.KeyConcurrency, 7)
	viper.Set(config.KeyChunkMin, 1)
	viper.Set(config.KeyChunkAvg, 2)
	viper.Set(config.KeyChunkMax, 3)
	viper.Set(config.KeyLogLevel, "trace")

	opts := OptionsFromViper()
	assert.Equal(t, DriverMinio, opts.Driver)
	assert.Equal(t, 7, opts.Concurrency)
	assert.Equal(t, chunker.Options{MinSize: 1, AvgSize: 2, MaxSize: 3}, opts.Chunker)
	assert.True(t, opts.Debug)
}
