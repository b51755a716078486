package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config 用于初始化 MinIO / S3 兼容后端
type Config struct {
	Endpoint string // 必填，例如 http://localhost:9000
	Region   string
	Bucket   string
	Prefix   string

	// Profile 从 ~/.aws/credentials 读取凭证
	Profile string
	// 静态凭证，设置后优先于 Profile
	AccessKeyID     string
	SecretAccessKey string

	PartSize    uint64
	Concurrency uint
}

// Adapter 实现了 storage.Backend 接口
type Adapter struct {
	client *minio.Client
	cfg    Config
	root   string
}

// NewAdapter 构建 minio 客户端，不做网络请求
func NewAdapter(cfg Config) (*Adapter, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("minio backend requires an endpoint URL, got %q", cfg.Endpoint)
	}

	var creds *credentials.Credentials
	if cfg.AccessKeyID != "" {
		creds = credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	} else {
		// 空文件名表示默认的 ~/.aws/credentials
		creds = credentials.NewFileAWSCredentials("", cfg.Profile)
		// 文件凭证是惰性的，这里解析一次，让 Profile 问题在构建阶段暴露
		if _, err := creds.GetWithContext(nil); err != nil {
			return nil, &storage.CredentialsError{Profile: cfg.Profile, Err: err}
		}
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:        creds,
		Secure:       u.Scheme == "https",
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient 复用已有的客户端
func NewWithClient(client *minio.Client, cfg Config) *Adapter {
	cfg.Prefix = strings.Trim(cfg.Prefix, "/")
	return &Adapter{client: client, cfg: cfg, root: cfg.Prefix}
}

func (s *Adapter) Scope(root string) storage.Backend {
	scoped := *s
	scoped.root = storage.JoinRoot(s.root, root)
	return &scoped
}

func (s *Adapter) Location() string {
	return "minio://" + storage.JoinRoot(s.cfg.Bucket, s.root)
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return fmt.Errorf("minio put existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	data := obj.Bytes()
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, storage.ObjectKey(s.root, obj.ID()),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/octet-stream",
			PartSize:    s.cfg.PartSize,
			NumThreads:  s.cfg.Concurrency,
		})
	if err != nil {
		return fmt.Errorf("minio put failed: %w", err)
	}
	return nil
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	key := storage.ObjectKey(s.root, hash)
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapError(err, "minio get failed")
	}
	// GetObject 是惰性的，Stat 一次让 404 在这里暴露
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, mapError(err, "minio get failed")
	}
	return obj, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := s.client.StatObject(ctx, s.cfg.Bucket, storage.ObjectKey(s.root, hash), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (s *Adapter) GetRef(ctx context.Context, name string) (storage.Ref, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, storage.RefKey(s.root, name), minio.GetObjectOptions{})
	if err != nil {
		return storage.Ref{}, mapError(err, "minio get ref failed")
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return storage.Ref{}, mapError(err, "minio stat ref failed")
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return storage.Ref{}, mapError(err, "minio read ref failed")
	}

	return storage.Ref{
		Target: types.Hash(strings.TrimSpace(string(data))),
		Token:  info.ETag,
	}, nil
}

func (s *Adapter) PutRef(ctx context.Context, name string, target types.Hash, expect string) error {
	opts := minio.PutObjectOptions{ContentType: "text/plain"}
	if expect == "" {
		opts.SetMatchETagExcept("*")
	} else {
		opts.SetMatchETag(expect)
	}

	body := string(target)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, storage.RefKey(s.root, name),
		strings.NewReader(body), int64(len(body)), opts)
	if err != nil {
		code := minio.ToErrorResponse(err).Code
		if code == "PreconditionFailed" || (expect != "" && isNotFound(err)) {
			return storage.ErrRefConflict
		}
		return fmt.Errorf("minio put ref %s failed: %w", name, err)
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func mapError(err error, msg string) error {
	if isNotFound(err) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
