// Package storetest provides a behavioural test suite for eventstore.Store
// implementations.
//
//	func TestMyStore(t *testing.T) {
//	    storetest.Run(t, func(t *testing.T) eventstore.Store {
//	        return newMyStore(t)
//	    })
//	}
package storetest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// Factory creates an empty store. The suite closes it.
type Factory func(t *testing.T) eventstore.Store

var (
	accounts = contract.MustWith("bank.Account")
	deposit  = contract.MustWith("bank.MoneyWasDeposited")
	opened   = contract.MustWith("bank.AccountWasOpened")
)

// envelopes builds n envelopes with distinct ids and payloads.
func envelopes(prefix string, n int) []eventstore.Envelope {
	out := make([]eventstore.Envelope, n)
	for i := range out {
		c := deposit
		if i == 0 {
			c = opened
		}
		out[i] = eventstore.Wrap(
			identity.EventID(fmt.Sprintf("%s-evt-%d", prefix, i+1)),
			c,
			[]byte(fmt.Sprintf(`{"n":%d}`, i+1)),
		)
	}
	return out
}

// Run runs the suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()
	ctx := context.Background()

	open := func(t *testing.T, store eventstore.Store, id identity.Identity) eventstore.Stream {
		t.Helper()
		s, err := store.OpenStream(ctx, accounts, id)
		require.NoError(t, err)
		return s
	}

	t.Run("OpenStream_Missing", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		s := open(t, store, identity.Generate())
		assert.Empty(t, s.All())
		assert.Equal(t, int64(0), s.Version())
		assert.Equal(t, accounts, s.Contract())
	})

	t.Run("Commit_ThenOpen", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		envs := envelopes("a", 3)

		s, err := store.CreateStream(ctx, accounts, id)
		require.NoError(t, err)
		s.AppendAll(envs...)
		require.NoError(t, s.Commit(ctx, "commit-1"))
		assert.Equal(t, int64(3), s.Version())

		reopened := open(t, store, id)
		assert.Equal(t, int64(3), reopened.Version())
		assert.Equal(t, envs, reopened.All())
		assert.Equal(t, id.String(), reopened.Identity().String())
	})

	t.Run("Commit_NothingStaged", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s := open(t, store, id)
		require.NoError(t, s.Commit(ctx, "commit-1"))
		assert.Empty(t, open(t, store, id).All())
	})

	t.Run("Uncommitted_Invisible", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s, err := store.CreateStream(ctx, accounts, id)
		require.NoError(t, err)
		s.AppendAll(envelopes("a", 2)...)

		assert.Empty(t, open(t, store, id).All())
	})

	t.Run("Discard", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s := open(t, store, id)
		s.AppendAll(envelopes("a", 2)...)
		s.Discard()
		require.NoError(t, s.Commit(ctx, "commit-1"))

		assert.Empty(t, open(t, store, id).All())
		assert.Equal(t, int64(0), s.Version())
	})

	t.Run("Commit_HandleReusable", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s := open(t, store, id)
		first, second := envelopes("a", 1), envelopes("b", 2)

		s.AppendAll(first...)
		require.NoError(t, s.Commit(ctx, "commit-1"))
		s.AppendAll(second...)
		require.NoError(t, s.Commit(ctx, "commit-2"))

		assert.Equal(t, int64(3), s.Version())
		assert.Len(t, s.All(), 3)

		all := open(t, store, id).All()
		require.Len(t, all, 3)
		assert.Equal(t, identity.EventID("a-evt-1"), all[0].EventID())
		assert.Equal(t, identity.EventID("b-evt-1"), all[1].EventID())
		assert.Equal(t, identity.EventID("b-evt-2"), all[2].EventID())
	})

	t.Run("Commit_Conflict", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		first := open(t, store, id)
		second := open(t, store, id)

		first.AppendAll(envelopes("a", 1)...)
		require.NoError(t, first.Commit(ctx, "commit-a"))

		second.AppendAll(envelopes("b", 2)...)
		err := second.Commit(ctx, "commit-b")

		var conflict *eventstore.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.ErrorIs(t, err, ecerrors.ErrConcurrency)
		assert.Equal(t, int64(0), conflict.Expected)

		all := open(t, store, id).All()
		require.Len(t, all, 1, "losing commit writes nothing")
		assert.Equal(t, identity.EventID("a-evt-1"), all[0].EventID())
	})

	t.Run("CreateStream_ExistingConflicts", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s, err := store.CreateStream(ctx, accounts, id)
		require.NoError(t, err)
		s.AppendAll(envelopes("a", 1)...)
		require.NoError(t, s.Commit(ctx, "commit-a"))

		again, err := store.CreateStream(ctx, accounts, id)
		require.NoError(t, err)
		again.AppendAll(envelopes("b", 1)...)
		assert.ErrorIs(t, again.Commit(ctx, "commit-b"), ecerrors.ErrConcurrency)
	})

	t.Run("Commit_RetriedCommitID", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s := open(t, store, id)
		s.AppendAll(envelopes("a", 2)...)
		require.NoError(t, s.Commit(ctx, "commit-1"))

		// Same commit from the same base version, e.g. after a lost reply.
		retry, err := store.CreateStream(ctx, accounts, id)
		require.NoError(t, err)
		retry.AppendAll(envelopes("a", 2)...)
		require.NoError(t, retry.Commit(ctx, "commit-1"))
		assert.Equal(t, int64(2), retry.Version())

		assert.Len(t, open(t, store, id).All(), 2, "retried commit applies nothing")
	})

	t.Run("Commit_ReusedCommitID_OtherVersion", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s := open(t, store, id)
		s.AppendAll(envelopes("a", 2)...)
		require.NoError(t, s.Commit(ctx, "commit-1"))

		later := open(t, store, id)
		later.AppendAll(envelopes("b", 1)...)
		err := later.Commit(ctx, "commit-1")

		var conflict *eventstore.ConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, identity.CommitID("commit-1"), conflict.CommitID)
		assert.ErrorIs(t, err, ecerrors.ErrConcurrency)
		assert.Equal(t, int64(2), later.Version())
		assert.Len(t, open(t, store, id).All(), 2)
	})

	t.Run("Commit_ReusedCommitID_OtherEvents", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s := open(t, store, id)
		s.AppendAll(envelopes("a", 2)...)
		require.NoError(t, s.Commit(ctx, "commit-1"))

		fresh, err := store.CreateStream(ctx, accounts, id)
		require.NoError(t, err)
		fresh.AppendAll(envelopes("b", 3)...)
		assert.ErrorIs(t, fresh.Commit(ctx, "commit-1"), ecerrors.ErrConcurrency)
		assert.Len(t, open(t, store, id).All(), 2)
	})

	t.Run("Commit_EmptyCommitID", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		s := open(t, store, identity.Generate())
		s.AppendAll(envelopes("a", 1)...)
		assert.ErrorIs(t, s.Commit(ctx, ""), ecerrors.ErrValidation)
	})

	t.Run("Commit_CancelledContext", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		s := open(t, store, id)
		s.AppendAll(envelopes("a", 1)...)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		assert.ErrorIs(t, s.Commit(cancelled, "commit-1"), context.Canceled)
		assert.Empty(t, open(t, store, id).All())
	})

	t.Run("CreateStream_CancelledContext", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := store.CreateStream(cancelled, accounts, identity.Generate())
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Streams_SeparatorInNames", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		y := identity.Generate().String()
		left, err := store.CreateStream(ctx, contract.MustWith("bank/x"), identity.ID(y))
		require.NoError(t, err)
		left.AppendAll(envelopes("a", 1)...)
		require.NoError(t, left.Commit(ctx, "commit-1"))

		right, err := store.OpenStream(ctx, contract.MustWith("bank"), identity.ID("x/"+y))
		require.NoError(t, err)
		assert.Empty(t, right.All())
		right.AppendAll(envelopes("b", 1)...)
		require.NoError(t, right.Commit(ctx, "commit-1"))
	})

	t.Run("Streams_Isolated", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		other := contract.MustWith("bank.Loan")

		s := open(t, store, id)
		s.AppendAll(envelopes("a", 2)...)
		require.NoError(t, s.Commit(ctx, "commit-1"))

		assert.Empty(t, open(t, store, identity.Generate()).All())

		loan, err := store.OpenStream(ctx, other, id)
		require.NoError(t, err)
		assert.Empty(t, loan.All(), "same identity under another contract is another stream")
	})

	t.Run("Envelope_PayloadImmutable", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		id := identity.Generate()
		payload := []byte(`{"n":1}`)
		s := open(t, store, id)
		s.AppendAll(eventstore.Wrap("evt-1", opened, payload))
		payload[0] = 'X'
		require.NoError(t, s.Commit(ctx, "commit-1"))

		got := open(t, store, id).All()[0].Payload()
		assert.Equal(t, `{"n":1}`, string(got))
		got[0] = 'Y'
		assert.Equal(t, `{"n":1}`, string(open(t, store, id).All()[0].Payload()))
	})

	t.Run("Concurrent_SameStream_OneWinner", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		const writers = 8
		id := identity.Generate()
		handles := make([]eventstore.Stream, writers)
		for i := range handles {
			handles[i] = open(t, store, id)
			handles[i].AppendAll(envelopes(fmt.Sprintf("w%d", i), 2)...)
		}

		var wins, conflicts atomic.Int32
		var g errgroup.Group
		for i, h := range handles {
			g.Go(func() error {
				err := h.Commit(ctx, identity.CommitID(fmt.Sprintf("commit-%d", i)))
				switch {
				case err == nil:
					wins.Add(1)
				case ecerrors.IsConflict(err):
					conflicts.Add(1)
				default:
					return err
				}
				return nil
			})
		}
		require.NoError(t, g.Wait())

		assert.Equal(t, int32(1), wins.Load())
		assert.Equal(t, int32(writers-1), conflicts.Load())
		assert.Len(t, open(t, store, id).All(), 2)
	})

	t.Run("Concurrent_DifferentStreams", func(t *testing.T) {
		store := factory(t)
		defer store.Close()

		const writers = 8
		ids := make([]identity.ID, writers)
		var mu sync.Mutex
		committed := 0

		var g errgroup.Group
		for i := range ids {
			ids[i] = identity.Generate()
			g.Go(func() error {
				s, err := store.OpenStream(ctx, accounts, ids[i])
				if err != nil {
					return err
				}
				s.AppendAll(envelopes(fmt.Sprintf("s%d", i), 3)...)
				if err := s.Commit(ctx, "commit-1"); err != nil {
					return err
				}
				mu.Lock()
				committed++
				mu.Unlock()
				return nil
			})
		}
		require.NoError(t, g.Wait())
		assert.Equal(t, writers, committed)

		for _, id := range ids {
			assert.Len(t, open(t, store, id).All(), 3)
		}
	})

	t.Run("Closed", func(t *testing.T) {
		store := factory(t)
		s := open(t, store, identity.Generate())
		s.AppendAll(envelopes("a", 1)...)

		require.NoError(t, store.Close())
		require.NoError(t, store.Close(), "close is idempotent")

		_, err := store.OpenStream(ctx, accounts, identity.Generate())
		assert.ErrorIs(t, err, ecerrors.ErrStoreClosed)
		_, err = store.CreateStream(ctx, accounts, identity.Generate())
		assert.ErrorIs(t, err, ecerrors.ErrStoreClosed)
		assert.ErrorIs(t, s.Commit(ctx, "commit-1"), ecerrors.ErrStoreClosed)
	})
}
