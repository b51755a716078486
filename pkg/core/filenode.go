package core

import (
	"fmt"

	"ocflprobe/pkg/types"
)

// ChunkLink 描述了 FileNode 对底层 Chunk 的引用
type ChunkLink struct {
	Cid  Link `cbor:"h"`
	Size int  `cbor:"s"` // 这个 Chunk 的大小 (用于计算 offset)
}

func NewChunkLink(c *Chunk) ChunkLink {
	return ChunkLink{Cid: NewLink(c.ID()), Size: len(c.Bytes())}
}

// FileNode (ADL) 将散乱的 Chunk 组装成一个逻辑上的大文件
type FileNode struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal   ObjectType  `cbor:"t"`
	TotalSize int64       `cbor:"ts"`
	Chunks    []ChunkLink `cbor:"cs"`
}

// NewFileNode 创建一个新的文件索引节点
// TotalSize 必须等于所有 Chunk 的大小之和
func NewFileNode(totalSize int64, chunks []ChunkLink) (*FileNode, error) {
	var sum int64
	for _, c := range chunks {
		sum += int64(c.Size)
	}
	if sum != totalSize {
		return nil, fmt.Errorf("filenode size mismatch: declared %d, chunks sum to %d", totalSize, sum)
	}

	node := &FileNode{
		TypeVal:   TypeFileNode,
		TotalSize: totalSize,
		Chunks:    chunks,
	}
	h, b, err := CalculateHash(node)
	if err != nil {
		return nil, err
	}
	node.hash = h
	node.rawBytes = b
	return node, nil
}

func (f *FileNode) Type() ObjectType { return TypeFileNode }
func (f *FileNode) ID() types.Hash   { return f.hash }
func (f *FileNode) Bytes() []byte    { return f.rawBytes }
func (f *FileNode) Size() int64      { return f.TotalSize }

// FileNodeBuilder 按顺序收集 Chunk，最后一次性生成 FileNode
type FileNodeBuilder struct {
	links []ChunkLink
	total int64
}

func NewFileNodeBuilder() *FileNodeBuilder {
	return &FileNodeBuilder{}
}

func (b *FileNodeBuilder) Add(c *Chunk) {
	b.links = append(b.links, NewChunkLink(c))
	b.total += c.Size()
}

func (b *FileNodeBuilder) Build() (*FileNode, error) {
	return NewFileNode(b.total, b.links)
}
