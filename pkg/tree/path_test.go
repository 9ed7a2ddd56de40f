package tree_test

import (
	"testing"

	"github.com/aretw0/firestream/pkg/domain"
	"github.com/aretw0/firestream/pkg/tree"
	"github.com/stretchr/testify/assert"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "/", tree.Clean(""))
	assert.Equal(t, "/", tree.Clean("//"))
	assert.Equal(t, "/a/b", tree.Clean("a//b/"))
	assert.Equal(t, "/a/b/c", tree.Join("/a", "b/c"))
	assert.Equal(t, "/a", tree.Parent("/a/b"))
	assert.Equal(t, "/", tree.Parent("/a"))
	assert.Equal(t, "b", tree.Base("/a/b"))
	assert.Equal(t, "", tree.Base("/"))

	assert.True(t, tree.IsAncestor("/", "/a"))
	assert.True(t, tree.IsAncestor("/a", "/a/b"))
	assert.False(t, tree.IsAncestor("/a", "/ab"))
	assert.True(t, tree.Related("/a/b", "/a"))
	assert.False(t, tree.Related("/a/b", "/a/c"))
}

func TestValidate(t *testing.T) {
	assert.NoError(t, tree.Validate("/users/u1"))
	assert.ErrorIs(t, tree.Validate("/users/a.b"), domain.ErrInvalidPath)
	assert.ErrorIs(t, tree.Validate("/x/$id"), domain.ErrInvalidPath)
}
