package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ocflprobe/pkg/probe"
	"ocflprobe/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute 运行一次根命令，返回 stdout / stderr
// cobra 的 flag 值在多次执行之间会保留，所以每个用例都显式传入关心的参数
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

type env struct {
	work, store, history string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return env{
		work:    filepath.Join(dir, "ocfl-s3-test"),
		store:   filepath.Join(dir, "buckets"),
		history: filepath.Join(dir, "history.db"),
	}
}

// flags 返回 extra (子命令及其参数) 加上所有用例共用的参数
func (e env) flags(extra ...string) []string {
	return append(extra,
		"--driver", "disk",
		"--storage-path", e.store,
		"--work-dir", e.work,
		"--history-dsn", e.history,
		"--log-format", "json",
		"--log-level", "info",
	)
}

// findRunDir 返回工作目录下唯一的 <uuid> 目录
func findRunDir(t *testing.T, work string) string {
	t.Helper()
	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && e.Name() != probe.TempDirName {
			dirs = append(dirs, e.Name())
		}
	}
	require.Len(t, dirs, 1)
	return dirs[0]
}

func TestRun_NonInteractive_Disk(t *testing.T) {
	e := newEnv(t)

	_, logs, err := execute(t, "", e.flags(
		"--non-interactive", "--bucket", "test-bucket", "--prefix", "", "--size", "65536")...)
	require.NoError(t, err, logs)
	assert.Contains(t, logs, "Creating client using config")
	assert.Contains(t, logs, "Test passed")

	info, err := os.Stat(filepath.Join(e.work, probe.FileName))
	require.NoError(t, err)
	assert.Equal(t, int64(65536), info.Size())

	uuid := findRunDir(t, e.work)
	restored, err := os.Stat(filepath.Join(e.work, uuid, probe.FileName))
	require.NoError(t, err)
	assert.Equal(t, int64(65536), restored.Size())
	assert.DirExists(t, filepath.Join(e.work, probe.TempDirName))

	// history 记录了这次运行
	out, _, err := execute(t, "", e.flags("history")...)
	require.NoError(t, err)
	assert.Contains(t, out, "urn:uuid:"+uuid)
	assert.Contains(t, out, "1 runs, 1 passed")

	// cat 能读回版本元数据
	out, _, err = execute(t, "", e.flags("cat", "urn:uuid:"+uuid, "--bucket", "test-bucket", "--prefix", "")...)
	require.NoError(t, err)
	assert.Contains(t, out, "Version: v1")
	assert.Contains(t, out, "test <test@example.com>")
	assert.Contains(t, out, "s3 transfer manager test")
	assert.Contains(t, out, probe.FileName)
}

func TestRun_Interactive_Disk(t *testing.T) {
	e := newEnv(t)

	out, logs, err := execute(t, "\n\n\n\nprompted-bucket\nruns\n", e.flags(
		"--non-interactive=false", "--size", "4096")...)
	require.NoError(t, err, logs)
	assert.Contains(t, out, "Profile [default]: Region [us-east-2]: Endpoint: Bucket: Bucket: Prefix: ")
	assert.Contains(t, logs, "bucket=prompted-bucket")

	uuid := findRunDir(t, e.work)
	assert.DirExists(t, filepath.Join(e.store, "prompted-bucket", "runs"))
	_, err = types.ObjectID("urn:uuid:" + uuid).UUID()
	assert.NoError(t, err)
}

func TestRun_MissingBucketFails(t *testing.T) {
	e := newEnv(t)

	_, logs, err := execute(t, "", e.flags("--non-interactive", "--bucket", "", "--size", "4096")...)
	require.Error(t, err)
	assert.Equal(t, probe.KindConfig, probe.KindOf(err))
	assert.ErrorIs(t, err, types.ErrBucketRequired)
	assert.Contains(t, logs, "Test failed")
	assert.NoDirExists(t, e.work, "配置错误时不应创建任何目录")
}

func TestRun_InteractiveEOFFails(t *testing.T) {
	e := newEnv(t)

	_, _, err := execute(t, "\n\n\n", e.flags("--non-interactive=false", "--size", "4096")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrBucketRequired)
}

func TestCat_UnknownObject(t *testing.T) {
	e := newEnv(t)

	_, _, err := execute(t, "", e.flags("cat", types.NewObjectID().String(), "--bucket", "b", "--prefix", "")...)
	assert.Error(t, err)
}

func TestHistory_Empty(t *testing.T) {
	e := newEnv(t)

	out, _, err := execute(t, "", e.flags("history")...)
	require.NoError(t, err)
	assert.Contains(t, out, "No runs recorded yet.")
}
