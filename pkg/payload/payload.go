package payload

import (
	"bufio"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
)

// BufferSize 每次写入的块大小
const BufferSize = 8192

// Result 描述 EnsureArtifact 的结果
type Result struct {
	Path    string
	Size    int64
	Created bool // false 表示文件已存在，直接复用 (Size 是它的实际大小)
}

// EnsureArtifact 保证 path 处存在测试文件
//
// 已存在的文件直接复用，不检查内容也不重新生成；否则用 seed 决定的伪随机内容写入 size 字节。
// 先写临时文件再 rename，中途失败不会留下截断的文件。
func EnsureArtifact(path string, size int64, seed uint64) (Result, error) {
	if size < 0 {
		return Result{}, fmt.Errorf("invalid artifact size %d", size)
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		return Result{}, fmt.Errorf("artifact path %s is a directory", path)
	case err == nil:
		return Result{Path: path, Size: info.Size()}, nil
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return Result{}, fmt.Errorf("failed to stat artifact: %w", err)
	}

	if err := generate(path, size, seed); err != nil {
		return Result{}, err
	}
	return Result{Path: path, Size: size, Created: true}, nil
}

func generate(path string, size int64, seed uint64) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".payload-*")
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp, size, seed); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to publish artifact: %w", err)
	}
	return nil
}

func fill(f *os.File, size int64, seed uint64) error {
	var key [32]byte
	for i := range 4 {
		s := seed + uint64(i)*0x9e3779b97f4a7c15
		for j := range 8 {
			key[i*8+j] = byte(s >> (8 * j))
		}
	}
	src := rand.NewChaCha8(key)

	w := bufio.NewWriterSize(f, BufferSize)
	buf := make([]byte, BufferSize)
	for remaining := size; remaining > 0; {
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		_, _ = src.Read(buf[:n])
		if _, err := w.Write(buf[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}
