package core

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"ocflprobe/pkg/types"

	"github.com/stretchr/testify/require"
)

// mockHash 生成一个合法的 32 字节 Hex 字符串 (64字符长度)
// 用于满足 Link 对 Hex 格式的要求
func mockHash(input string) types.Hash {
	sum := sha256.Sum256([]byte(input))
	return types.Hash(hex.EncodeToString(sum[:]))
}

// mustNewVersion 创建 Version，如果失败直接终止测试
func mustNewVersion(t *testing.T, state, parent types.Hash, msgAndArgs ...any) *Version {
	t.Helper()
	v, err := NewVersion("urn:uuid:test", 1, state, parent, types.VersionInfo{
		UserName:    "test",
		UserAddress: "test@example.com",
		Message:     "msg",
	})
	require.NoError(t, err, msgAndArgs...)
	return v
}
