package eventstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - events + commits tables
const currentSchemaVersion = 1

// SQLiteStore persists event streams to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite event store.
// The path should be a file path (e.g., "./events.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps ":memory:"
	// databases shared across calls.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

// migrate creates the schema and stamps the schema version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d",
			version, currentSchemaVersion)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// OpenStream implements Store.
func (s *SQLiteStore) OpenStream(ctx context.Context, c contract.Contract, id identity.Identity) (Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, event_contract, payload
		FROM events
		WHERE contract = ? AND stream_id = ?
		ORDER BY version
	`, c.String(), id.String())
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	defer rows.Close()

	var committed []Envelope
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
		committed = append(committed, Wrap(identity.EventID(eventID), ec, payload))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return &sqliteStream{Buffer: NewBuffer(c, id, committed), store: s}, nil
}

// CreateStream implements Store.
func (s *SQLiteStore) CreateStream(ctx context.Context, c contract.Contract, id identity.Identity) (Stream, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &sqliteStream{Buffer: NewBuffer(c, id, nil), store: s}, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

type sqliteStream struct {
	*Buffer
	store *SQLiteStore
}

// Commit implements Stream.
func (s *sqliteStream) Commit(ctx context.Context, commitID identity.CommitID) error {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if s.store.closed {
		return ErrStoreClosed
	}
	if len(s.Staged()) == 0 {
		return nil
	}
	if err := ValidateCommit(ctx, commitID); err != nil {
		return err
	}

	return s.write(ctx, commitID)
}

// write inserts the staged envelopes in one transaction. A commit id the
// stream already recorded is settled by Resolve without writing.
func (s *sqliteStream) write(ctx context.Context, commitID identity.CommitID) error {
	c, streamID := s.Contract().String(), s.StreamID()

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit stream: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	var actual int64
	err = tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM events
		WHERE contract = ? AND stream_id = ?
	`, c, streamID).Scan(&actual)
	if err != nil {
		return fmt.Errorf("commit stream: read version: %w", err)
	}

	var applied AppliedCommit
	err = tx.QueryRowContext(ctx, `
		SELECT c.version, COUNT(e.event_id)
		FROM commits c
		LEFT JOIN events e
			ON e.contract = c.contract AND e.stream_id = c.stream_id AND e.commit_id = c.commit_id
		WHERE c.contract = ? AND c.stream_id = ? AND c.commit_id = ?
		GROUP BY c.version
	`, c, streamID, string(commitID)).Scan(&applied.Base, &applied.Events)
	switch {
	case err == nil:
		return s.Resolve(commitID, applied, actual)
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("commit stream: check commit: %w", err)
	}

	if actual != s.Version() {
		return s.Conflict(actual)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	base, version := s.Version(), s.Version()
	for _, env := range s.Staged() {
		version++
		_, err := tx.ExecContext(ctx, `
			INSERT INTO events
			(contract, stream_id, version, event_id, event_contract, payload, commit_id, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c, streamID, version, string(env.EventID()), env.Contract().String(), env.payload, string(commitID), now)
		if err != nil {
			if isPrimaryKeyViolation(err) {
				return s.Conflict(-1)
			}
			return fmt.Errorf("commit stream: insert event %s: %w", env.EventID(), err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO commits (contract, stream_id, commit_id, version, committed_at)
		VALUES (?, ?, ?, ?, ?)
	`, c, streamID, string(commitID), base, now)
	if err != nil {
		return fmt.Errorf("commit stream: record commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stream: commit tx: %w", err)
	}
	s.Advance()
	return nil
}

// isPrimaryKeyViolation reports whether another writer took the version.
func isPrimaryKeyViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
