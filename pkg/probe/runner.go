package probe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/payload"
	"ocflprobe/pkg/types"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	// FileName 测试文件在本地与对象内部的名字
	FileName = "file.txt"
	// DefaultSize 100 MiB
	DefaultSize int64 = 100 * 1024 * 1024
	// DefaultWorkDir 本地工作根目录
	DefaultWorkDir = "ocfl-s3-test"
	// TempDirName 工作根目录下给存储客户端用的暂存目录
	TempDirName = "ocfl-temp"
)

// DefaultVersionInfo 每次提交使用的固定元数据
var DefaultVersionInfo = types.VersionInfo{
	UserName:    "test",
	UserAddress: "test@example.com",
	Message:     "s3 transfer manager test",
}

// Client 是 Runner 需要的版本化存储能力
type Client interface {
	UpdateObject(ctx context.Context, ovid types.ObjectVersionID, info types.VersionInfo, files map[string]string) (*core.Version, error)
	GetObject(ctx context.Context, ovid types.ObjectVersionID, dest string) (*core.Version, error)
}

// Outcome 记录一次成功 (或部分成功) 的往返
type Outcome struct {
	ObjectID      types.ObjectID
	Artifact      string
	Dest          string
	Size          int64
	Version       types.VersionNum
	WriteDuration time.Duration
	ReadDuration  time.Duration
}

// Runner 依次执行 生成 -> 提交 -> 下载 -> 校验
type Runner struct {
	client Client
	root   string
	size   int64
	seed   uint64
	info   types.VersionInfo
	log    logrus.FieldLogger
	newID  func() types.ObjectID
}

type Option func(*Runner)

func WithSize(size int64) Option {
	return func(r *Runner) { r.size = size }
}

func WithSeed(seed uint64) Option {
	return func(r *Runner) { r.seed = seed }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Runner) { r.log = log }
}

func WithVersionInfo(info types.VersionInfo) Option {
	return func(r *Runner) { r.info = info }
}

// WithIDGenerator 替换对象 ID 生成器 (测试用)
func WithIDGenerator(fn func() types.ObjectID) Option {
	return func(r *Runner) { r.newID = fn }
}

// NewRunner root 是本地工作根目录，测试文件和下载结果都放在这里
func NewRunner(client Client, root string, opts ...Option) *Runner {
	r := &Runner{
		client: client,
		root:   root,
		size:   DefaultSize,
		info:   DefaultVersionInfo,
		log:    logrus.StandardLogger(),
		newID:  types.NewObjectID,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run 执行一次完整的往返。任何一步失败都会立刻返回，不重试
// 返回的 Outcome 在失败时也包含已完成步骤的信息
func (r *Runner) Run(ctx context.Context) (*Outcome, error) {
	out := &Outcome{Size: r.size}

	// 1. 新对象 ID
	id := r.newID()
	u, err := id.UUID()
	if err != nil {
		return out, Wrap(KindConfig, "invalid object id", err)
	}
	out.ObjectID = id
	log := r.log.WithField("object_id", id)

	// 2. 测试文件
	out.Artifact = filepath.Join(r.root, FileName)
	if _, err := os.Stat(out.Artifact); errors.Is(err, os.ErrNotExist) {
		log.Info("Generating test file...")
	}
	res, err := payload.EnsureArtifact(out.Artifact, r.size, r.seed)
	if err != nil {
		return out, Wrap(KindIO, "failed to generate test file", err)
	}
	if !res.Created {
		log.WithField("path", res.Path).Info("Reusing existing test file")
		if res.Size != r.size {
			log.WithFields(logrus.Fields{"expected": r.size, "actual": res.Size}).
				Warn("existing test file has a different size, verification will fail")
		}
	}

	// 3. 提交
	log.Infof("Writing %s object %s...", humanize.IBytes(uint64(r.size)), id)
	start := time.Now()
	v, err := r.client.UpdateObject(ctx, types.Head(id), r.info, map[string]string{FileName: out.Artifact})
	if err != nil {
		return out, Wrap(KindTransfer, "failed to write object", err)
	}
	out.WriteDuration = time.Since(start)
	out.Version = v.Num()
	log.WithField("elapsed", out.WriteDuration).
		Infof("Object successfully written to S3 in %s", out.WriteDuration)

	// 4. 下载到 <root>/<uuid>
	out.Dest = filepath.Join(r.root, u.String())
	log.Infof("Downloading object to %s...", out.Dest)
	start = time.Now()
	if _, err := r.client.GetObject(ctx, types.Head(id), out.Dest); err != nil {
		return out, Wrap(KindTransfer, "failed to get object", err)
	}
	out.ReadDuration = time.Since(start)
	log.WithField("elapsed", out.ReadDuration).
		Infof("Object successfully downloaded from S3 in %s", out.ReadDuration)

	// 5. 校验
	if err := Verify(out.Dest, r.size); err != nil {
		return out, err
	}

	log.Info("Test passed")
	return out, nil
}
