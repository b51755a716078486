package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKey_Sharding(t *testing.T) {
	assert.Equal(t, "root/objects/aa/bbcc", ObjectKey("root", "aabbcc"))
	assert.Equal(t, "objects/aa/bbcc", ObjectKey("", "aabbcc"))
	assert.Equal(t, "root/objects/a", ObjectKey("root", "a"))
}

func TestRefKey(t *testing.T) {
	assert.Equal(t, "p/3c0/refs/HEAD", RefKey("p/3c0", "HEAD"))
}

func TestJoinRoot(t *testing.T) {
	assert.Equal(t, "", JoinRoot("", ""))
	assert.Equal(t, "prefix/obj", JoinRoot("prefix", "", "obj"))
	assert.Equal(t, "obj", JoinRoot("", "obj"))
}
