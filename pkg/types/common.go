// pkg/types/common.go
package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Hash 代表对象的唯一标识符 (SHA256 Hex String)
// 这是一个“值对象”，应当是不可变的。
type Hash string

func (h Hash) String() string { return string(h) }

// 验证 Hash 合法性
func (h Hash) IsZero() bool  { return h == "" }
func (h Hash) IsValid() bool { return len(h) == 64 } // 简单的长度检查

// Short 返回前 8 位，用于日志
func (h Hash) Short() string {
	if len(h) <= 8 {
		return string(h)
	}
	return string(h[:8])
}

// -----------------------------------------------------------------------------
// 对象标识 (Object Identity)
// -----------------------------------------------------------------------------

const urnUUIDPrefix = "urn:uuid:"

// ObjectID 是版本化对象的逻辑名称，例如 "urn:uuid:3f0c..."
// 它独立于任何一个版本的内容。
type ObjectID string

// NewObjectID 基于随机 UUID 生成一个新的 URN
// 唯一性由 UUID 的随机性保证，不做存在性检查
func NewObjectID() ObjectID {
	return ObjectID(urnUUIDPrefix + uuid.NewString())
}

func (id ObjectID) String() string { return string(id) }

// UUID 返回 URN 中的 UUID 部分；非 urn:uuid 形式的 ID 返回错误
func (id ObjectID) UUID() (uuid.UUID, error) {
	s := string(id)
	if !strings.HasPrefix(s, urnUUIDPrefix) {
		return uuid.Nil, fmt.Errorf("object id %q is not a urn:uuid", s)
	}
	return uuid.Parse(strings.TrimPrefix(s, urnUUIDPrefix))
}

// VersionNum 是对象内部的版本号 (v1, v2, ...)
// 0 表示 HEAD (最新版本)
type VersionNum int

const HeadVersion VersionNum = 0

func (v VersionNum) IsHead() bool { return v == HeadVersion }

func (v VersionNum) String() string {
	if v.IsHead() {
		return "head"
	}
	return "v" + strconv.Itoa(int(v))
}

// ParseVersionNum 解析 "v3" / "3" / "head"
func ParseVersionNum(s string) (VersionNum, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "head" {
		return HeadVersion, nil
	}
	n, err := strconv.Atoi(strings.TrimPrefix(s, "v"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid version number %q", s)
	}
	return VersionNum(n), nil
}

// ObjectVersionID 指向某个对象的某个版本
type ObjectVersionID struct {
	ID      ObjectID
	Version VersionNum
}

// Head 指向对象的最新版本
func Head(id ObjectID) ObjectVersionID {
	return ObjectVersionID{ID: id, Version: HeadVersion}
}

// AtVersion 指向对象的指定版本
func AtVersion(id ObjectID, v VersionNum) ObjectVersionID {
	return ObjectVersionID{ID: id, Version: v}
}

func (o ObjectVersionID) String() string {
	return fmt.Sprintf("%s@%s", o.ID, o.Version)
}

// VersionInfo 是附加在一次提交上的元数据 (写一次，不可变)
type VersionInfo struct {
	UserName    string
	UserAddress string
	Message     string
}
