package registry

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	r := New[string, int]()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
}

func TestRegisterAndGet(t *testing.T) {
	r := New[string, int]()

	require.NoError(t, r.Register("one", 1))
	require.NoError(t, r.Register("two", 2))

	v, ok := r.Get("one")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = r.Get("three")
	assert.False(t, ok)
	assert.Equal(t, 0, v)
}

func TestRegisterDuplicate(t *testing.T) {
	r := New[string, string]()

	require.NoError(t, r.Register("key", "old"))
	err := r.Register("key", "new")
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "key")

	v, _ := r.Get("key")
	assert.Equal(t, "old", v, "first registration wins")
}

func TestKeysLen(t *testing.T) {
	r := New[string, int]()
	require.NoError(t, r.Register("a", 1))
	require.NoError(t, r.Register("b", 2))
	assert.Equal(t, 2, r.Len())

	keys := r.Keys()
	sort.Strings(keys)
	assert.Equal(t, []string{"a", "b"}, keys)

	for _, k := range keys {
		require.NoError(t, r.Register(k+"'", 0))
	}
	assert.Equal(t, 4, r.Len())
}

func TestGetOrCreate_Concurrent(t *testing.T) {
	r := New[string, *int]()
	var calls atomic.Int32

	const n = 50
	results := make([]*int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate("shared", func() *int {
				calls.Add(1)
				v := 42
				return &v
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
}
