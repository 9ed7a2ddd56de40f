package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/firestream/pkg/registry"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := registry.New[int]()
	require.NoError(t, r.Register("b", 2))
	require.NoError(t, r.Register("a", 1))

	v, ok := r.Lookup("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestRegistry_DuplicateIsRejected(t *testing.T) {
	r := registry.New[string]()
	require.NoError(t, r.Register("app", "first"))

	err := r.Register("app", "second")
	assert.ErrorIs(t, err, registry.ErrDuplicateApp)

	v, _ := r.Lookup("app")
	assert.Equal(t, "first", v, "existing entry must survive")
}

func TestRegistry_RemoveFreesTheName(t *testing.T) {
	r := registry.New[string]()
	require.NoError(t, r.Register("app", "first"))
	r.Remove("app")
	r.Remove("app")

	assert.Empty(t, r.Names())
	assert.NoError(t, r.Register("app", "again"))
}
