package core

import (
	"time"

	"ocflprobe/pkg/types"
)

// Version 是对象的一个不可变版本
// Parents 为空表示这是对象的第一个版本
type Version struct {
	hash     types.Hash `cbor:"-"`
	rawBytes []byte     `cbor:"-"`

	TypeVal ObjectType `cbor:"t"`

	ObjectID string `cbor:"id"`
	Number   int    `cbor:"v"`

	StateCid Link   `cbor:"sh"`
	Parents  []Link `cbor:"p"`

	UserName    string `cbor:"un"`
	UserAddress string `cbor:"ua"`
	Message     string `cbor:"m"`

	Created int64 `cbor:"ts"`
}

// NewVersion 构造一个版本
// parent 为空字符串表示没有父版本
func NewVersion(id types.ObjectID, number types.VersionNum, stateHash, parent types.Hash, info types.VersionInfo) (*Version, error) {
	var parents []Link
	if !parent.IsZero() {
		parents = []Link{NewLink(parent)}
	}

	v := &Version{
		TypeVal:     TypeVersion,
		ObjectID:    id.String(),
		Number:      int(number),
		StateCid:    NewLink(stateHash),
		Parents:     parents,
		UserName:    info.UserName,
		UserAddress: info.UserAddress,
		Message:     info.Message,
		Created:     time.Now().Unix(),
	}

	h, b, err := CalculateHash(v)
	if err != nil {
		return nil, err
	}
	v.hash = h
	v.rawBytes = b
	return v, nil
}

func (v *Version) Type() ObjectType { return TypeVersion }
func (v *Version) ID() types.Hash   { return v.hash }
func (v *Version) Bytes() []byte    { return v.rawBytes }

// Num 返回版本号
func (v *Version) Num() types.VersionNum { return types.VersionNum(v.Number) }

// Parent 返回父版本的 Hash，第一个版本返回空
func (v *Version) Parent() types.Hash {
	if len(v.Parents) == 0 {
		return ""
	}
	return v.Parents[0].Hash
}

// Info 还原提交时的元数据
func (v *Version) Info() types.VersionInfo {
	return types.VersionInfo{
		UserName:    v.UserName,
		UserAddress: v.UserAddress,
		Message:     v.Message,
	}
}

// Seal 在解码后补全 hash 与原始字节 (解码出来的对象没有这两个字段)
func (v *Version) Seal(hash types.Hash, raw []byte) {
	v.hash = hash
	v.rawBytes = raw
}
