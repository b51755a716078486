package probe

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	ErrMissingFile  = errors.New("missing file")
	ErrSizeMismatch = errors.New("size mismatch")
)

// Verify 检查 dir 下的测试文件存在且大小等于 size
// 只比较大小，不比较内容
func Verify(dir string, size int64) error {
	file := filepath.Join(dir, FileName)

	info, err := os.Stat(file)
	if errors.Is(err, os.ErrNotExist) {
		return Wrap(KindVerify, fmt.Sprintf("expected %s to exist, but it does not", file), ErrMissingFile)
	}
	if err != nil {
		return Wrap(KindIO, "failed to stat "+file, err)
	}
	if !info.Mode().IsRegular() {
		return Wrap(KindVerify, fmt.Sprintf("expected %s to be a regular file", file), ErrMissingFile)
	}
	if info.Size() != size {
		return Wrap(KindVerify,
			fmt.Sprintf("expected %s to be size %d, but was %d", file, size, info.Size()), ErrSizeMismatch)
	}
	return nil
}
