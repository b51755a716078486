// Package layout 把对象 ID 映射到存储根目录下的路径
package layout

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"path"

	"ocflprobe/pkg/types"
)

// Layout 是从对象 ID 到对象根目录的确定性映射
type Layout interface {
	Name() string
	ObjectRoot(id types.ObjectID) (string, error)
}

// HashedNTupleConfig 对应 OCFL 扩展 0004-hashed-n-tuple-storage-layout
type HashedNTupleConfig struct {
	DigestAlgorithm string // sha256 | sha512
	TupleSize       int
	NumberOfTuples  int
	ShortObjectRoot bool // true 时最后一段只保留剩余的摘要，而不是完整摘要
}

// DefaultHashedNTupleConfig 是扩展规范里的默认值
func DefaultHashedNTupleConfig() HashedNTupleConfig {
	return HashedNTupleConfig{
		DigestAlgorithm: "sha256",
		TupleSize:       3,
		NumberOfTuples:  3,
		ShortObjectRoot: false,
	}
}

// HashedNTuple 实现 Layout
// Example: sha256("object-01") = "3c0ff4..." -> "3c0/ff4/240/3c0ff4...(完整摘要)"
type HashedNTuple struct {
	cfg     HashedNTupleConfig
	newHash func() hash.Hash
}

func NewHashedNTuple(cfg HashedNTupleConfig) (*HashedNTuple, error) {
	var h func() hash.Hash
	var digestLen int
	switch cfg.DigestAlgorithm {
	case "sha256":
		h, digestLen = sha256.New, sha256.Size*2
	case "sha512":
		h, digestLen = sha512.New, sha512.Size*2
	default:
		return nil, fmt.Errorf("unsupported digest algorithm %q", cfg.DigestAlgorithm)
	}

	if cfg.TupleSize < 0 || cfg.NumberOfTuples < 0 || (cfg.TupleSize == 0) != (cfg.NumberOfTuples == 0) {
		return nil, fmt.Errorf("invalid tuple config: size=%d count=%d", cfg.TupleSize, cfg.NumberOfTuples)
	}
	used := cfg.TupleSize * cfg.NumberOfTuples
	if used > digestLen || (cfg.ShortObjectRoot && used >= digestLen) {
		return nil, fmt.Errorf("tuples (%d chars) exceed %s digest length", used, cfg.DigestAlgorithm)
	}

	return &HashedNTuple{cfg: cfg, newHash: h}, nil
}

func (l *HashedNTuple) Name() string { return "0004-hashed-n-tuple-storage-layout" }

func (l *HashedNTuple) ObjectRoot(id types.ObjectID) (string, error) {
	if id == "" {
		return "", fmt.Errorf("object id must not be empty")
	}

	h := l.newHash()
	h.Write([]byte(id))
	digest := hex.EncodeToString(h.Sum(nil))

	parts := make([]string, 0, l.cfg.NumberOfTuples+1)
	for i := 0; i < l.cfg.NumberOfTuples; i++ {
		start := i * l.cfg.TupleSize
		parts = append(parts, digest[start:start+l.cfg.TupleSize])
	}

	if l.cfg.ShortObjectRoot {
		parts = append(parts, digest[l.cfg.TupleSize*l.cfg.NumberOfTuples:])
	} else {
		parts = append(parts, digest)
	}
	return path.Join(parts...), nil
}
