// Package redis provides a Redis event store built on go-redis.
//
// Each stream is a list of JSON envelope records plus a hash of applied
// commit ids. Both keys share a hash tag so they live in the same cluster
// slot. Commit runs under WATCH on both keys: if another writer touches the
// stream between the version check and EXEC, the transaction aborts and
// Commit returns *eventstore.ConflictError.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// DefaultPrefix namespaces keys when Options.Prefix is empty.
const DefaultPrefix = "eventcentric"

// Options configures a Redis store.
type Options struct {
	Addr        string
	Password    string
	DB          int
	Prefix      string
	DialTimeout time.Duration
}

// Store persists event streams to Redis.
type Store struct {
	client *goredis.Client
	prefix string
	closed atomic.Bool
}

// Compile-time interface check.
var _ eventstore.Store = (*Store)(nil)

// record is the stored form of an envelope.
type record struct {
	EventID  string `json:"event_id"`
	Contract string `json:"contract"`
	Payload  []byte `json:"payload"`
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Addr) == "" {
		return nil, fmt.Errorf("redis store: missing address")
	}
	dialTimeout := opts.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewWithClient(client, opts.Prefix), nil
}

// NewWithClient wraps an existing client. The store closes it on Close.
func NewWithClient(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

// streamTag is the hash tag shared by a stream's keys. The contract length
// keeps ("a/b", "c") and ("a", "b/c") apart.
func streamTag(c contract.Contract, id string) string {
	name := c.String()
	return fmt.Sprintf("{%d:%s:%s}", len(name), name, id)
}

func (s *Store) eventsKey(c contract.Contract, id string) string {
	return s.prefix + ":" + streamTag(c, id) + ":events"
}

// commitsKey holds a hash of commit id to "base:events".
func (s *Store) commitsKey(c contract.Contract, id string) string {
	return s.prefix + ":" + streamTag(c, id) + ":commits"
}

func encodeApplied(a eventstore.AppliedCommit) string {
	return strconv.FormatInt(a.Base, 10) + ":" + strconv.Itoa(a.Events)
}

func decodeApplied(v string) (eventstore.AppliedCommit, error) {
	base, events, ok := strings.Cut(v, ":")
	if !ok {
		return eventstore.AppliedCommit{}, fmt.Errorf("malformed commit record %q", v)
	}
	b, err := strconv.ParseInt(base, 10, 64)
	if err != nil {
		return eventstore.AppliedCommit{}, fmt.Errorf("malformed commit record %q: %w", v, err)
	}
	n, err := strconv.Atoi(events)
	if err != nil {
		return eventstore.AppliedCommit{}, fmt.Errorf("malformed commit record %q: %w", v, err)
	}
	return eventstore.AppliedCommit{Base: b, Events: n}, nil
}

// OpenStream implements eventstore.Store.
func (s *Store) OpenStream(ctx context.Context, c contract.Contract, id identity.Identity) (eventstore.Stream, error) {
	if s.closed.Load() {
		return nil, eventstore.ErrStoreClosed
	}

	raw, err := s.client.LRange(ctx, s.eventsKey(c, id.String()), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}

	committed := make([]eventstore.Envelope, 0, len(raw))
	for i, item := range raw {
		var rec record
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		ec, err := contract.With(rec.Contract)
		if err != nil {
			return nil, fmt.Errorf("decode event %s: %w", rec.EventID, err)
		}
		committed = append(committed, eventstore.Wrap(identity.EventID(rec.EventID), ec, rec.Payload))
	}

	return &stream{Buffer: eventstore.NewBuffer(c, id, committed), store: s}, nil
}

// CreateStream implements eventstore.Store.
func (s *Store) CreateStream(ctx context.Context, c contract.Contract, id identity.Identity) (eventstore.Stream, error) {
	if s.closed.Load() {
		return nil, eventstore.ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &stream{Buffer: eventstore.NewBuffer(c, id, nil), store: s}, nil
}

// Close implements eventstore.Store.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.client.Close()
}

type stream struct {
	*eventstore.Buffer
	store *Store
}

// Commit implements eventstore.Stream.
func (s *stream) Commit(ctx context.Context, commitID identity.CommitID) error {
	if s.store.closed.Load() {
		return eventstore.ErrStoreClosed
	}
	if len(s.Staged()) == 0 {
		return nil
	}
	if err := eventstore.ValidateCommit(ctx, commitID); err != nil {
		return err
	}

	values := make([]any, 0, len(s.Staged()))
	for _, env := range s.Staged() {
		data, err := json.Marshal(record{
			EventID:  string(env.EventID()),
			Contract: env.Contract().String(),
			Payload:  env.Payload(),
		})
		if err != nil {
			return fmt.Errorf("commit stream: encode event %s: %w", env.EventID(), err)
		}
		values = append(values, string(data))
	}

	eventsKey := s.store.eventsKey(s.Contract(), s.StreamID())
	commitsKey := s.store.commitsKey(s.Contract(), s.StreamID())
	retried := false

	txf := func(tx *goredis.Tx) error {
		actual, err := tx.LLen(ctx, eventsKey).Result()
		if err != nil {
			return fmt.Errorf("read version: %w", err)
		}

		raw, err := tx.HGet(ctx, commitsKey, string(commitID)).Result()
		switch {
		case err == nil:
			applied, err := decodeApplied(raw)
			if err != nil {
				return err
			}
			if err := s.Resolve(commitID, applied, actual); err != nil {
				return err
			}
			retried = true
			return nil
		case !errors.Is(err, goredis.Nil):
			return fmt.Errorf("check commit: %w", err)
		}

		if actual != s.Version() {
			return s.Conflict(actual)
		}

		record := encodeApplied(eventstore.AppliedCommit{Base: s.Version(), Events: len(values)})
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.RPush(ctx, eventsKey, values...)
			pipe.HSet(ctx, commitsKey, string(commitID), record)
			return nil
		})
		return err
	}

	err := s.store.client.Watch(ctx, txf, eventsKey, commitsKey)
	switch {
	case errors.Is(err, goredis.TxFailedErr):
		return s.Conflict(-1)
	case err != nil:
		var conflict *eventstore.ConflictError
		if errors.As(err, &conflict) {
			return err
		}
		return fmt.Errorf("commit stream: %w", err)
	}

	if !retried {
		s.Advance()
	}
	return nil
}
