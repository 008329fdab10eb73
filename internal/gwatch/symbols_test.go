package gwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolverSizeValid(t *testing.T) {
	for _, size := range []int{4, 5, 6, 7, 8} {
		assert.True(t, resolverSizeValid(size), "size %d should be accepted", size)
	}
	for _, size := range []int{0, 1, 2, 3, 9, 16} {
		assert.False(t, resolverSizeValid(size), "size %d should be rejected", size)
	}
}

func TestSplitQualifiedName(t *testing.T) {
	mod, name := splitQualifiedName("mymodule!counter")
	assert.Equal(t, "mymodule", mod)
	assert.Equal(t, "counter", name)

	mod, name = splitQualifiedName("counter")
	assert.Equal(t, "", mod)
	assert.Equal(t, "counter", name)

	mod, name = splitQualifiedName("a!b!c")
	assert.Equal(t, "a", mod)
	assert.Equal(t, "b!c", name)
}
