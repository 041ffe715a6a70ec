// Package postgres provides a PostgreSQL event store built on pgx.
//
// Streams share two tables, eventcentric_events and eventcentric_commits,
// created on first use. Concurrent writers to one stream are serialized by
// the (contract, stream_id, version) primary key: the loser of a race gets a
// unique violation, reported as *eventstore.ConflictError.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Store persists event streams to PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	closed atomic.Bool
}

// Compile-time interface check.
var _ eventstore.Store = (*Store)(nil)

// New connects to dsn, verifies the connection and creates the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// OpenStream implements eventstore.Store.
func (s *Store) OpenStream(ctx context.Context, c contract.Contract, id identity.Identity) (eventstore.Stream, error) {
	if s.closed.Load() {
		return nil, eventstore.ErrStoreClosed
	}

	rows, err := s.pool.Query(ctx, `
		SELECT event_id, event_contract, payload
		FROM eventcentric_events
		WHERE contract = $1 AND stream_id = $2
		ORDER BY version
	`, c.String(), id.String())
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer rows.Close()

	var committed []eventstore.Envelope
	for rows.Next() {
		var (
			eventID, eventContract string
			payload                []byte
		)
		if err := rows.Scan(&eventID, &eventContract, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ec, err := contract.With(eventContract)
		if err != nil {
			return nil, fmt.Errorf("scan event %s: %w", eventID, err)
		}
		committed = append(committed, eventstore.Wrap(identity.EventID(eventID), ec, payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
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
	s.pool.Close()
	return nil
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

	err := s.write(ctx, commitID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return s.Conflict(-1)
	}
	return err
}

// write inserts the staged envelopes in one transaction. A commit id the
// stream already recorded is settled by Resolve without writing.
func (s *stream) write(ctx context.Context, commitID identity.CommitID) error {
	c, streamID := s.Contract().String(), s.StreamID()

	tx, err := s.store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("commit stream: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if committed

	var actual int64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM eventcentric_events
		WHERE contract = $1 AND stream_id = $2
	`, c, streamID).Scan(&actual)
	if err != nil {
		return fmt.Errorf("commit stream: read version: %w", err)
	}

	var applied eventstore.AppliedCommit
	err = tx.QueryRow(ctx, `
		SELECT c.version, COUNT(e.event_id)
		FROM eventcentric_commits c
		LEFT JOIN eventcentric_events e
			ON e.contract = c.contract AND e.stream_id = c.stream_id AND e.commit_id = c.commit_id
		WHERE c.contract = $1 AND c.stream_id = $2 AND c.commit_id = $3
		GROUP BY c.version
	`, c, streamID, string(commitID)).Scan(&applied.Base, &applied.Events)
	switch {
	case err == nil:
		return s.Resolve(commitID, applied, actual)
	case !errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("commit stream: check commit: %w", err)
	}

	if actual != s.Version() {
		return s.Conflict(actual)
	}

	now := time.Now().UTC()
	base, version := s.Version(), s.Version()
	batch := &pgx.Batch{}
	for _, env := range s.Staged() {
		version++
		batch.Queue(`
			INSERT INTO eventcentric_events
			(contract, stream_id, version, event_id, event_contract, payload, commit_id, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, c, streamID, version, string(env.EventID()), env.Contract().String(), env.Payload(), string(commitID), now)
	}
	batch.Queue(`
		INSERT INTO eventcentric_commits (contract, stream_id, commit_id, version, committed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c, streamID, string(commitID), base, now)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("commit stream: insert events: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stream: commit tx: %w", err)
	}
	s.Advance()
	return nil
}
