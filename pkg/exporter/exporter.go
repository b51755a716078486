package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ocflprobe/pkg/core"
	"ocflprobe/pkg/storage"
	"ocflprobe/pkg/types"
)

// ErrFixity 表示读回的数据与记录的 Hash 或大小不一致
var ErrFixity = errors.New("fixity check failed")

type Exporter struct {
	store   storage.Store
	tempDir string
}

// NewExporter tempDir 用于暂存还原中的文件，必须与目标目录在同一个文件系统上
func NewExporter(store storage.Store, tempDir string) *Exporter {
	return &Exporter{store: store, tempDir: tempDir}
}

// LoadFileNode 读取并解码 FileNode
func (e *Exporter) LoadFileNode(ctx context.Context, hash types.Hash) (*core.FileNode, error) {
	data, err := e.readAll(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get filenode meta: %w", err)
	}
	var fileNode core.FileNode
	if err := core.DecodeTyped(data, core.TypeFileNode, &fileNode); err != nil {
		return nil, fmt.Errorf("failed to decode filenode: %w", err)
	}
	return &fileNode, nil
}

// LoadState 读取并解码 State
func (e *Exporter) LoadState(ctx context.Context, hash types.Hash) (*core.State, error) {
	data, err := e.readAll(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get state %s: %w", hash.Short(), err)
	}
	var state core.State
	if err := core.DecodeTyped(data, core.TypeState, &state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// ExportFile 根据 FileNode 的 Hash，将还原的文件写入 writer
// 每个 Chunk 都会重新计算 sha256，不一致返回 ErrFixity
func (e *Exporter) ExportFile(ctx context.Context, hash types.Hash, writer io.Writer) (int64, error) {
	fileNode, err := e.LoadFileNode(ctx, hash)
	if err != nil {
		return 0, err
	}

	var written int64
	for i, chunkLink := range fileNode.Chunks {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		data, err := e.readAll(ctx, chunkLink.Cid.Hash)
		if err != nil {
			return written, fmt.Errorf("failed to get chunk %d: %w", i, err)
		}
		if len(data) != chunkLink.Size || core.CalculateBlobHash(data) != chunkLink.Cid.Hash {
			return written, fmt.Errorf("%w: chunk %d (%s)", ErrFixity, i, chunkLink.Cid.Hash.Short())
		}
		n, err := writer.Write(data)
		written += int64(n)
		if err != nil {
			return written, fmt.Errorf("failed to write chunk %d data: %w", i, err)
		}
	}

	if written != fileNode.TotalSize {
		return written, fmt.Errorf("%w: restored %d bytes, expected %d", ErrFixity, written, fileNode.TotalSize)
	}
	return written, nil
}

type RestoreCallback func(path string, hash types.Hash, size int64)

// RestoreState 将一个 State 里的所有文件还原到 targetDir
// 每个文件先写到 tempDir，写完并校验后再 rename 到最终位置，不会留下半截文件
func (e *Exporter) RestoreState(ctx context.Context, state *core.State, targetDir string, onRestore RestoreCallback) error {
	for _, entry := range state.Entries {
		clean, err := core.CleanLogicalPath(entry.Path)
		if err != nil {
			return err
		}
		fullPath := filepath.Join(targetDir, filepath.FromSlash(clean))

		if err := e.restoreFile(ctx, entry.Node.Hash, fullPath); err != nil {
			return fmt.Errorf("failed to restore %s: %w", clean, err)
		}
		if onRestore != nil {
			onRestore(fullPath, entry.Node.Hash, entry.Size)
		}
	}
	return nil
}

func (e *Exporter) restoreFile(ctx context.Context, hash types.Hash, fullPath string) error {
	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	tmp, err := os.CreateTemp(e.tempDir, "restore-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// rename 成功后 Remove 是空操作
	defer os.Remove(tmpName)

	if _, err := e.ExportFile(ctx, hash, tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create dir %s: %w", filepath.Dir(fullPath), err)
	}
	return os.Rename(tmpName, fullPath)
}

func (e *Exporter) readAll(ctx context.Context, hash types.Hash) ([]byte, error) {
	rc, err := e.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
