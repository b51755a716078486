package storage

import (
	"path"

	"ocflprobe/pkg/types"
)

// 对象根目录下的布局：
//
//	<root>/objects/aa/bbcc...   内容寻址对象 (前 2 位分片)
//	<root>/refs/HEAD            可变引用
const (
	ObjectsDir = "objects"
	RefsDir    = "refs"
)

// ObjectKey 将 Hash 转换为分片后的相对 Key
// Logic: "aabbcc..." -> "objects/aa/bbcc..."
func ObjectKey(root string, hash types.Hash) string {
	h := string(hash)
	if len(h) < 2 {
		return path.Join(root, ObjectsDir, h)
	}
	return path.Join(root, ObjectsDir, h[:2], h[2:])
}

// RefKey 返回引用的相对 Key
func RefKey(root, name string) string {
	return path.Join(root, RefsDir, name)
}

// JoinRoot 拼接命名空间，忽略空段
func JoinRoot(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return ""
	}
	return path.Join(nonEmpty...)
}
