package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// API 是 Adapter 用到的 S3 方法子集
// *s3.Client 满足这个接口，测试里可以换成内存实现
type API interface {
	manager.UploadAPIClient
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Config 用于初始化 Adapter
type Config struct {
	Bucket string
	Prefix string // Bucket 内的命名空间，可为空

	// PartSize 是分片上传/下载的分片大小
	// Default: 8MB (比 SDK 默认的 5MB 大，吞吐更好)
	PartSize int64

	// Concurrency 是单个对象的并发分片数
	// Default: 5
	Concurrency int

	// Checksum 打开 CRC32C 完整性校验
	Checksum bool
}

func (c Config) withDefaults() Config {
	if c.PartSize < manager.MinUploadPartSize {
		c.PartSize = 8 * 1024 * 1024
	}
	if c.Concurrency <= 0 {
		c.Concurrency = manager.DefaultUploadConcurrency
	}
	c.Prefix = strings.Trim(c.Prefix, "/")
	return c
}

// Adapter 实现了 storage.Backend 接口
type Adapter struct {
	client     API
	uploader   *manager.Uploader
	downloader *manager.Downloader
	cfg        Config
	root       string
}

// NewAdapter 在已有的客户端上构建后端
// 不做任何网络请求 (Bucket 是否存在在第一次读写时才知道)
func NewAdapter(client API, cfg Config) *Adapter {
	cfg = cfg.withDefaults()
	return &Adapter{
		client: client,
		uploader: manager.NewUploader(client, func(u *manager.Uploader) {
			u.PartSize = cfg.PartSize
			u.Concurrency = cfg.Concurrency
			// 失败时中止分片上传，避免留下孤儿分片
			u.LeavePartsOnError = false
		}),
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			d.PartSize = cfg.PartSize
			d.Concurrency = cfg.Concurrency
		}),
		cfg:  cfg,
		root: cfg.Prefix,
	}
}

func (s *Adapter) Scope(root string) storage.Backend {
	scoped := *s
	scoped.root = storage.JoinRoot(s.root, root)
	return &scoped
}

func (s *Adapter) Location() string {
	return "s3://" + storage.JoinRoot(s.cfg.Bucket, s.root)
}

// Put 上传对象，大对象自动走分片上传
func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	// 1. 幂等性检查 (去重)
	// 对于 S3，Head 请求比 Put 请求便宜且快。如果已存在，直接跳过。
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return fmt.Errorf("s3 put existence check failed: %w", err)
	}
	if exists {
		return nil
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(storage.ObjectKey(s.root, obj.ID())),
		Body:        bytes.NewReader(obj.Bytes()),
		ContentType: aws.String(contentType(obj)),
	}
	if s.cfg.Checksum {
		input.ChecksumAlgorithm = s3types.ChecksumAlgorithmCrc32c
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return fmt.Errorf("s3 put failed: %w", err)
	}
	return nil
}

// Get 下载对象，按分片并发拉取
func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	buf := manager.NewWriteAtBuffer(nil)

	_, err := s.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(storage.ObjectKey(s.root, hash)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}

	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

// Has 检查对象是否存在
func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(storage.ObjectKey(s.root, hash)),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

// GetRef 读取引用内容，Token 为 ETag
func (s *Adapter) GetRef(ctx context.Context, name string) (storage.Ref, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(storage.RefKey(s.root, name)),
	})
	if err != nil {
		if isNotFound(err) {
			return storage.Ref{}, storage.ErrNotFound
		}
		return storage.Ref{}, fmt.Errorf("s3 get ref %s failed: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return storage.Ref{}, fmt.Errorf("s3 read ref %s failed: %w", name, err)
	}

	return storage.Ref{
		Target: types.Hash(strings.TrimSpace(string(data))),
		Token:  aws.ToString(out.ETag),
	}, nil
}

// PutRef 使用 S3 条件写入 (If-None-Match / If-Match) 实现原子发布
func (s *Adapter) PutRef(ctx context.Context, name string, target types.Hash, expect string) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(storage.RefKey(s.root, name)),
		Body:        strings.NewReader(string(target)),
		ContentType: aws.String("text/plain"),
	}
	if expect == "" {
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(expect)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return storage.ErrRefConflict
		}
		// 带 Token 更新一个已经不存在的引用，也视为冲突
		if expect != "" && isNotFound(err) {
			return storage.ErrRefConflict
		}
		return fmt.Errorf("s3 put ref %s failed: %w", name, err)
	}
	return nil
}

func contentType(obj core.Object) string {
	if obj.Type() == core.TypeChunk {
		return "application/octet-stream"
	}
	return "application/cbor"
}

func isNotFound(err error) bool {
	var notFound *s3types.NotFound
	var noKey *s3types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
