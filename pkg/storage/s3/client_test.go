package s3

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"ocflprobe/pkg/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 配置了 Endpoint 时，请求必须发往该地址，并使用 Path Style (/bucket/key)
func TestNewClient_EndpointOverride(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.Method+" "+r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ctx := context.Background()
	client, err := NewClient(ctx, ClientConfig{
		Region:          "us-east-2",
		Endpoint:        srv.URL,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	store := NewAdapter(client, Config{Bucket: "test-bucket", Prefix: "pfx"})
	chunk := core.NewChunk([]byte("endpoint override"))

	found, err := store.Has(ctx, chunk.ID())
	require.NoError(t, err)
	assert.False(t, found, "404 表示对象不存在")

	h := string(chunk.ID())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, paths, 1)
	assert.Equal(t, "HEAD /test-bucket/pfx/objects/"+h[:2]+"/"+h[2:], paths[0])
	assert.False(t, strings.HasPrefix(paths[0], "HEAD /pfx"), "Bucket 不能跑到 Host 里 (Virtual Host Style)")
}
