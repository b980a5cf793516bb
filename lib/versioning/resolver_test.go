package versioning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func versioned(value string, ts int64, entries ...ClockEntry) Versioned {
	return Versioned{Value: value, Clock: VectorClock{Entries: entries, Timestamp: ts}}
}

func TestDominanceResolver(t *testing.T) {
	resolver := NewDominanceResolver()

	t.Run("dominated versions are dropped", func(t *testing.T) {
		old := versioned("old", 1, ClockEntry{1, 1})
		newer := versioned("new", 2, ClockEntry{1, 2})

		result, err := resolver.Resolve([]Versioned{old, newer})
		require.NoError(t, err)
		require.Len(t, result, 1)
		assert.Equal(t, "new", result[0].Value)
	})

	t.Run("concurrent versions are kept", func(t *testing.T) {
		a := versioned("a", 1, ClockEntry{1, 1})
		b := versioned("b", 2, ClockEntry{2, 1})

		result, err := resolver.Resolve([]Versioned{a, b})
		require.NoError(t, err)
		assert.Equal(t, []Versioned{a, b}, result)
	})

	t.Run("identical versions are collapsed", func(t *testing.T) {
		a := versioned("a", 1, ClockEntry{1, 1})

		result, err := resolver.Resolve([]Versioned{a, a})
		require.NoError(t, err)
		assert.Len(t, result, 1)
	})
}

func TestTimestampResolver(t *testing.T) {
	resolver := NewTimestampResolver()

	result, err := resolver.Resolve([]Versioned{
		versioned("a", 10, ClockEntry{1, 1}),
		versioned("b", 30, ClockEntry{2, 1}),
		versioned("c", 20, ClockEntry{3, 1}),
	})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "b", result[0].Value)

	empty, err := resolver.Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResolverRegistry(t *testing.T) {
	registry := NewResolverRegistry()

	for _, name := range []string{"", "none"} {
		r, err := registry.Get(name)
		require.NoError(t, err)
		assert.Nil(t, r)
	}

	for _, name := range []string{"dominance", "timestamp"} {
		r, err := registry.Get(name)
		require.NoError(t, err)
		assert.NotNil(t, r)
	}

	_, err := registry.Get("does-not-exist")
	assert.Error(t, err)

	registry.Register("first", func() IConflictResolver {
		return ResolverFunc(func(v []Versioned) ([]Versioned, error) { return v[:1], nil })
	})
	r, err := registry.Get("first")
	require.NoError(t, err)
	result, err := r.Resolve([]Versioned{versioned("x", 0), versioned("y", 0)})
	require.NoError(t, err)
	assert.Equal(t, "x", result[0].Value)
}
