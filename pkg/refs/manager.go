package refs

import (
	"context"
	"errors"
	"fmt"

	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"
)

const HeadRef = "HEAD"

var (
	ErrNoHead = errors.New("HEAD not found (object does not exist)")
	// ErrConflict 表示有人抢先创建或更新了 HEAD
	ErrConflict = storage.ErrRefConflict
)

// Manager 负责管理对象的引用，目前只有 HEAD
type Manager struct {
	store storage.RefStore
}

func NewManager(store storage.RefStore) *Manager {
	return &Manager{store: store}
}

// GetHead 读取当前最新版本的 Hash 和并发令牌
// 如果对象还不存在，返回 ErrNoHead
func (m *Manager) GetHead(ctx context.Context) (types.Hash, string, error) {
	ref, err := m.store.GetRef(ctx, HeadRef)
	if errors.Is(err, storage.ErrNotFound) {
		return "", "", ErrNoHead
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to read HEAD: %w", err)
	}
	if !ref.Target.IsValid() {
		return "", "", fmt.Errorf("corrupted HEAD: %q", ref.Target)
	}
	return ref.Target, ref.Token, nil
}

// UpdateHead 原子地移动 HEAD (CAS)
// token 为空表示创建：如果 HEAD 已存在则失败
func (m *Manager) UpdateHead(ctx context.Context, versionHash types.Hash, token string) error {
	if err := m.store.PutRef(ctx, HeadRef, versionHash, token); err != nil {
		if errors.Is(err, storage.ErrRefConflict) {
			return ErrConflict
		}
		return fmt.Errorf("failed to update HEAD: %w", err)
	}
	return nil
}
