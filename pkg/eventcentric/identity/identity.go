// Package identity provides the opaque identifiers used by eventcentric:
// aggregate identities, event ids and commit ids.
package identity

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Identity identifies one aggregate instance. Its string form is the stream
// key, so two identities with the same String() address the same stream.
type Identity interface {
	String() string
}

// ID is a string-backed Identity.
type ID string

// String implements Identity.
func (id ID) String() string {
	return string(id)
}

// Generate returns a new random ID.
func Generate() ID {
	return ID(uuid.NewString())
}

// Parse validates s as a UUID and returns it as an ID.
func Parse(s string) (ID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("parse identity: %w", err)
	}
	return ID(u.String()), nil
}

// EventID uniquely identifies one stored event.
type EventID string

// String returns the event id.
func (id EventID) String() string {
	return string(id)
}

// CommitID uniquely identifies one stream commit. Stores use it to detect a
// replayed commit.
type CommitID string

// String returns the commit id.
func (id CommitID) String() string {
	return string(id)
}

// Generator produces event and commit ids.
// Implementations must be safe for concurrent use.
type Generator interface {
	EventID() EventID
	CommitID() CommitID
}

// UUIDGenerator produces time-ordered UUIDv7 ids.
type UUIDGenerator struct{}

// Compile-time interface check.
var _ Generator = UUIDGenerator{}

// EventID returns a new UUIDv7 event id.
func (UUIDGenerator) EventID() EventID {
	return EventID(newV7())
}

// CommitID returns a new UUIDv7 commit id.
func (UUIDGenerator) CommitID() CommitID {
	return CommitID(newV7())
}

// newV7 falls back to a random UUID if the clock-based one cannot be made.
func newV7() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

// SequenceGenerator produces predictable ids ("evt-1", "commit-1", ...).
// Useful for tests that assert on stored ids.
//
// Ids from different generators never collide: the first generator created
// with a prefix uses it as is, later ones with the same prefix get a
// generation suffix ("test-commit-1", then "test#2-commit-1").
type SequenceGenerator struct {
	mu      sync.Mutex
	prefix  string
	events  int64
	commits int64
}

// Compile-time interface check.
var _ Generator = (*SequenceGenerator)(nil)

// generations counts generators per prefix within the process.
var generations = struct {
	sync.Mutex
	byPrefix map[string]int
}{byPrefix: make(map[string]int)}

// NewSequenceGenerator creates a generator whose ids carry prefix, e.g.
// "run1-evt-1". An empty prefix yields "evt-1".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	prefix = strings.TrimSpace(prefix)

	generations.Lock()
	generations.byPrefix[prefix]++
	n := generations.byPrefix[prefix]
	generations.Unlock()

	if n > 1 {
		prefix = fmt.Sprintf("%s#%d", prefix, n)
	}
	return &SequenceGenerator{prefix: prefix}
}

// EventID returns the next event id.
func (g *SequenceGenerator) EventID() EventID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events++
	return EventID(g.format("evt", g.events))
}

// CommitID returns the next commit id.
func (g *SequenceGenerator) CommitID() CommitID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.commits++
	return CommitID(g.format("commit", g.commits))
}

func (g *SequenceGenerator) format(kind string, n int64) string {
	if g.prefix == "" {
		return fmt.Sprintf("%s-%d", kind, n)
	}
	return fmt.Sprintf("%s-%s-%d", g.prefix, kind, n)
}
