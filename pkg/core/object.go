package core

import "ocflprobe/pkg/types"

// ObjectType 定义了存储引擎中的对象类型
type ObjectType string

const (
	TypeChunk    ObjectType = "chunk"    // 原始数据块 (L1)
	TypeFileNode ObjectType = "filenode" // 大文件索引 (L2, ADL)
	TypeState    ObjectType = "state"    // 版本内的逻辑路径 -> 文件映射 (L3)
	TypeVersion  ObjectType = "version"  // 版本快照 (L4)
)

// Object 是所有 Merkle DAG 节点的通用接口
type Object interface {
	// Type 返回对象类型
	Type() ObjectType

	// ID 返回对象的哈希值 (CID)
	ID() types.Hash

	// Bytes 返回对象的序列化数据 (用于存储)
	Bytes() []byte
}
