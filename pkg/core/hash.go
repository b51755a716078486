package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"ocflprobe/pkg/types"

	"github.com/fxamacker/cbor/v2"
)

// DAG-CBOR 风格的规范编码：
// Map Key 排序、禁止不定长、时间编码为整数
// 相同的对象永远得到相同的字节，也就得到相同的 Hash
var encOptions = cbor.EncOptions{
	Sort:          cbor.SortCanonical,
	ShortestFloat: cbor.ShortestFloatNone,
	Time:          cbor.TimeUnix,
	TimeTag:       cbor.EncTagNone,
	IndefLength:   cbor.IndefLengthForbidden,
	BigIntConvert: cbor.BigIntConvertShortest,
}

var em, _ = encOptions.EncMode()

// 解码侧：限制容器大小防止恶意头部耗尽内存，并拒绝重复 Key
var decOptions = cbor.DecOptions{
	MaxArrayElements: 1 << 20, // 100GB / 最小块 也远小于这个值
	MaxMapPairs:      10000,
	MaxNestedLevels:  100,
	IndefLength:      cbor.IndefLengthForbidden,
	DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	BignumTag:        cbor.BignumTagForbidden,
	TimeTag:          cbor.DecTagIgnored,
}

var dm, _ = decOptions.DecMode()

// CalculateHash 计算对象的 Hash (CID) 和序列化数据
func CalculateHash(v any) (types.Hash, []byte, error) {
	data, err := em.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal object: %w", err)
	}
	sum := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(sum[:])), data, nil
}

// CalculateBlobHash 计算原始数据块的 Hash
func CalculateBlobHash(data []byte) types.Hash {
	sum := sha256.Sum256(data)
	return types.Hash(hex.EncodeToString(sum[:]))
}

// DecodeObject 通用的解码函数
func DecodeObject(data []byte, v any) error {
	return dm.Unmarshal(data, v)
}

// DecodeTyped 解码对象并校验类型头，防止把 Version 当成 State 读
func DecodeTyped(data []byte, want ObjectType, v any) error {
	var header struct {
		TypeVal ObjectType `cbor:"t"`
	}
	if err := dm.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("failed to decode %s header: %w", want, err)
	}
	if header.TypeVal != want {
		return fmt.Errorf("object is not a %s, got: %q", want, header.TypeVal)
	}
	return dm.Unmarshal(data, v)
}
