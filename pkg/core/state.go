package core

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"ocflprobe/pkg/types"
)

// StateEntry 将一个逻辑路径映射到 FileNode
// 逻辑路径使用 "/" 分隔，与本地文件系统无关
type StateEntry struct {
	Path string `cbor:"n"`
	Node Link   `cbor:"h"`
	Size int64  `cbor:"s"`
}

// State 是某个版本下对象的完整文件清单
type State struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal ObjectType   `cbor:"t"`
	Entries []StateEntry `cbor:"e"`
}

// NewState 创建一个新的状态节点
// Entries 按路径排序，保证同样的文件集合得到同样的 Hash
func NewState(entries []StateEntry) (*State, error) {
	seen := make(map[string]struct{}, len(entries))
	sorted := make([]StateEntry, 0, len(entries))
	for _, e := range entries {
		clean, err := CleanLogicalPath(e.Path)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[clean]; dup {
			return nil, fmt.Errorf("duplicate logical path %q", clean)
		}
		seen[clean] = struct{}{}
		e.Path = clean
		sorted = append(sorted, e)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	s := &State{
		TypeVal: TypeState,
		Entries: sorted,
	}
	h, b, err := CalculateHash(s)
	if err != nil {
		return nil, err
	}
	s.hash = h
	s.rawBytes = b
	return s, nil
}

// NewStateEntry 根据 FileNode 生成条目
func NewStateEntry(logicalPath string, node *FileNode) StateEntry {
	return StateEntry{
		Path: logicalPath,
		Node: NewLink(node.ID()),
		Size: node.TotalSize,
	}
}

// CleanLogicalPath 规范化逻辑路径，拒绝绝对路径和 ".." 逃逸
func CleanLogicalPath(p string) (string, error) {
	p = strings.ReplaceAll(p, "\\", "/")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("invalid logical path %q", p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid logical path %q", p)
	}
	return clean, nil
}

func (s *State) Type() ObjectType { return TypeState }
func (s *State) ID() types.Hash   { return s.hash }
func (s *State) Bytes() []byte    { return s.rawBytes }

// TotalSize 返回所有文件大小之和
func (s *State) TotalSize() int64 {
	var n int64
	for _, e := range s.Entries {
		n += e.Size
	}
	return n
}
