package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/types"
)

var (
	ErrNotFound = errors.New("object not found")
	// ErrRefConflict 表示条件写入失败：引用已存在 (创建时) 或已被别人修改 (更新时)
	ErrRefConflict = errors.New("ref update conflict")
)

// CredentialsError 表示凭证解析失败 (Profile 不存在、格式错误等)
// 各个远端后端在构建阶段解析凭证，失败时统一返回它
type CredentialsError struct {
	Profile string
	Err     error
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("failed to resolve credentials for profile %q: %v", e.Profile, e.Err)
}

func (e *CredentialsError) Unwrap() error { return e.Err }

// Store 是内容寻址 (CAS) 的对象存储
// Implementations can be local disk, S3, MinIO, or a caching decorator.
type Store interface {
	// Put 将一个核心对象持久化 (幂等：已存在则跳过)
	Put(ctx context.Context, obj core.Object) error

	// Get 根据 Hash 读取原始数据
	// 返回 io.ReadCloser 以便流式读取
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, hash types.Hash) (bool, error)
}

// Ref 是一个可变的命名指针 (例如对象的 HEAD)
// Token 是后端给出的并发控制令牌 (S3/MinIO 是 ETag，磁盘是内容本身)
type Ref struct {
	Target types.Hash
	Token  string
}

// RefStore 管理可变引用，所有写入都是条件写入
type RefStore interface {
	// GetRef 读取引用，不存在返回 ErrNotFound
	GetRef(ctx context.Context, name string) (Ref, error)

	// PutRef 条件写入引用
	// expect 为空：仅当引用不存在时创建
	// expect 非空：仅当当前 Token 等于 expect 时覆盖
	// 条件不满足返回 ErrRefConflict
	PutRef(ctx context.Context, name string, target types.Hash, expect string) error
}

// Backend 是版本化存储引擎使用的完整后端
type Backend interface {
	Store
	RefStore

	// Scope 返回一个子命名空间 (例如某个对象的根目录) 上的 Backend
	Scope(root string) Backend

	// Location 返回可读的位置描述，例如 "s3://bucket/prefix/root"
	Location() string
}
