package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"
)

// refLock 串行化本进程内的引用更新
// 跨进程的并发写入不在保证范围内 (本地后端只用于测试和离线运行)
var refLock sync.Mutex

// Adapter 实现了 storage.Backend 接口
type Adapter struct {
	basePath string // 比如: /tmp/ocfl-root
	root     string // Scope 之后的相对路径
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(base string) (*Adapter, error) {
	if err := os.MkdirAll(base, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{basePath: base}, nil
}

func (s *Adapter) Scope(root string) storage.Backend {
	return &Adapter{basePath: s.basePath, root: storage.JoinRoot(s.root, root)}
}

func (s *Adapter) Location() string {
	return "file://" + filepath.ToSlash(filepath.Join(s.basePath, filepath.FromSlash(s.root)))
}

func (s *Adapter) fullPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(key))
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	targetPath := s.fullPath(storage.ObjectKey(s.root, obj.ID()))

	// 1. 检查是否存在 (幂等性)
	if _, err := os.Stat(targetPath); err == nil {
		return nil
	}

	return writeAtomic(targetPath, obj.Bytes())
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.fullPath(storage.ObjectKey(s.root, hash)))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := os.Stat(s.fullPath(storage.ObjectKey(s.root, hash)))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// GetRef 磁盘后端的 Token 就是引用内容本身
func (s *Adapter) GetRef(ctx context.Context, name string) (storage.Ref, error) {
	data, err := os.ReadFile(s.fullPath(storage.RefKey(s.root, name)))
	if os.IsNotExist(err) {
		return storage.Ref{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Ref{}, fmt.Errorf("failed to read ref %s: %w", name, err)
	}
	target := strings.TrimSpace(string(data))
	return storage.Ref{Target: types.Hash(target), Token: target}, nil
}

func (s *Adapter) PutRef(ctx context.Context, name string, target types.Hash, expect string) error {
	refLock.Lock()
	defer refLock.Unlock()

	refPath := s.fullPath(storage.RefKey(s.root, name))

	current, err := s.GetRef(ctx, name)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		if expect != "" {
			return storage.ErrRefConflict
		}
	case err != nil:
		return err
	default:
		if expect == "" || current.Token != expect {
			return storage.ErrRefConflict
		}
	}

	return writeAtomic(refPath, []byte(target))
}

// writeAtomic 先写临时文件再 Rename
// 这样保证要么文件不存在，要么文件是完整的
func writeAtomic(targetPath string, data []byte) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	// 成功 Rename 后这个删除会失败，无害
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	return os.Rename(tempFile.Name(), targetPath)
}
