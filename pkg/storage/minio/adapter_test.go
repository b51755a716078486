package minio

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdapter_RequiresEndpoint(t *testing.T) {
	_, err := NewAdapter(Config{Bucket: "b"})
	assert.Error(t, err, "minio 后端没有 endpoint 无法工作")

	a, err := NewAdapter(Config{Endpoint: "http://localhost:9000", Bucket: "b", Prefix: "/p/", AccessKeyID: "k", SecretAccessKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "minio://b/p/obj", a.Scope("obj").Location())
}

func TestNewAdapter_ProfileCredentials(t *testing.T) {
	dir := t.TempDir()
	credFile := filepath.Join(dir, "credentials")
	require.NoError(t, os.WriteFile(credFile, []byte("[ci]\naws_access_key_id = k\naws_secret_access_key = s\n"), 0600))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", credFile)

	_, err := NewAdapter(Config{Endpoint: "http://localhost:9000", Bucket: "b", Profile: "ci"})
	require.NoError(t, err)

	// Profile 不存在时必须在构建阶段失败，而不是等到第一次请求
	_, err = NewAdapter(Config{Endpoint: "http://localhost:9000", Bucket: "b", Profile: "does-not-exist"})
	var credErr *storage.CredentialsError
	require.ErrorAs(t, err, &credErr)
	assert.Equal(t, "does-not-exist", credErr.Profile)

	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "missing"))
	_, err = NewAdapter(Config{Endpoint: "http://localhost:9000", Bucket: "b", Profile: "ci"})
	assert.ErrorAs(t, err, &credErr)
}

func TestMinioAdapter_Integration(t *testing.T) {
	conn, err := net.DialTimeout("tcp", "localhost:9000", time.Second)
	if err != nil {
		t.Skip("Skipping minio integration tests (MinIO down)")
	}
	conn.Close()

	a, err := NewAdapter(Config{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		Bucket:          "ocflprobe-test-bucket",
		Prefix:          "it-minio",
		AccessKeyID:     "admin",
		SecretAccessKey: "password",
	})
	require.NoError(t, err)

	id := types.NewObjectID()
	u, err := id.UUID()
	require.NoError(t, err)
	store := a.Scope(u.String())
	ctx := context.Background()

	chunk := core.NewChunk([]byte("hello from minio"))
	require.NoError(t, store.Put(ctx, chunk))

	ok, err := store.Has(ctx, chunk.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	r, err := store.Get(ctx, chunk.ID())
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	r.Close()
	require.NoError(t, err)
	assert.Equal(t, chunk.Bytes(), data)

	_, err = store.Get(ctx, core.CalculateBlobHash([]byte("nope")))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.PutRef(ctx, "HEAD", chunk.ID(), ""))
	assert.ErrorIs(t, store.PutRef(ctx, "HEAD", chunk.ID(), ""), storage.ErrRefConflict)

	ref, err := store.GetRef(ctx, "HEAD")
	require.NoError(t, err)
	assert.Equal(t, chunk.ID(), ref.Target)
}
