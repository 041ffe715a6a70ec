package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore/storetest"
)

// Set EVENTCENTRIC_REDIS_ADDR (e.g. localhost:6379) to run against a real server.
func TestStore(t *testing.T) {
	addr := os.Getenv("EVENTCENTRIC_REDIS_ADDR")
	if addr == "" {
		t.Skip("EVENTCENTRIC_REDIS_ADDR not set")
	}

	storetest.Run(t, func(t *testing.T) eventstore.Store {
		ctx := context.Background()
		prefix := "eventcentric-test-" + uuid.NewString()
		store, err := New(ctx, Options{Addr: addr, Prefix: prefix})
		require.NoError(t, err)

		t.Cleanup(func() {
			cleanup, err := New(ctx, Options{Addr: addr})
			if err != nil {
				return
			}
			defer cleanup.Close()
			keys, err := cleanup.client.Keys(ctx, prefix+":*").Result()
			if err == nil && len(keys) > 0 {
				cleanup.client.Del(ctx, keys...)
			}
		})
		return store
	})
}

func TestNew_MissingAddr(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestKeys_ShareHashTag(t *testing.T) {
	s := NewWithClient(nil, "")
	c := contract.MustWith("orders.Order")

	assert.Equal(t, "eventcentric:{12:orders.Order:o-1}:events", s.eventsKey(c, "o-1"))
	assert.Equal(t, "eventcentric:{12:orders.Order:o-1}:commits", s.commitsKey(c, "o-1"))
}

func TestKeys_Unambiguous(t *testing.T) {
	s := NewWithClient(nil, "")

	pairs := []struct {
		contract, id string
	}{
		{"a/b", "c"},
		{"a", "b/c"},
		{"a:1", "c"},
		{"a", "1:c"},
	}
	seen := make(map[string]string)
	for _, p := range pairs {
		key := s.eventsKey(contract.MustWith(p.contract), p.id)
		name := p.contract + " " + p.id
		prev, dup := seen[key]
		assert.False(t, dup, "%s and %s share key %s", prev, name, key)
		seen[key] = name
	}
}

func TestAppliedRecord(t *testing.T) {
	applied := eventstore.AppliedCommit{Base: 12, Events: 3}
	got, err := decodeApplied(encodeApplied(applied))
	require.NoError(t, err)
	assert.Equal(t, applied, got)

	_, err = decodeApplied("12")
	assert.Error(t, err)
	_, err = decodeApplied("x:3")
	assert.Error(t, err)
}
