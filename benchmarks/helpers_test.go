package benchmarks

import (
	"path/filepath"
	"testing"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/serializer"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/unitofwork"
)

// Ledger is a minimal aggregate for benchmarks.
type Ledger struct {
	aggregate.Base
	total   int
	entries int
}

// EntryWasPosted carries a realistic payload.
type EntryWasPosted struct {
	Account  string            `json:"account"`
	Amount   int               `json:"amount"`
	Memo     string            `json:"memo"`
	Metadata map[string]string `json:"metadata"`
}

var ledgerContract = contract.MustOf((*Ledger)(nil))

func newLedger() *Ledger {
	l := &Ledger{}
	aggregate.On(&l.Base, func(e EntryWasPosted) {
		l.total += e.Amount
		l.entries++
	})
	return l
}

func sampleEntry(i int) EntryWasPosted {
	return EntryWasPosted{
		Account: "acct-0001",
		Amount:  i,
		Memo:    "monthly settlement for invoice batch",
		Metadata: map[string]string{
			"source":  "import",
			"channel": "batch",
			"region":  "eu-west",
		},
	}
}

type fixture struct {
	ser serializer.Serializer
	rec *aggregate.Reconstituter
}

func newFixture(b *testing.B) fixture {
	b.Helper()
	types := serializer.NewTypeRegistry()
	if err := types.Register(EntryWasPosted{}); err != nil {
		b.Fatal(err)
	}
	rec := aggregate.NewReconstituter()
	if err := rec.Register(ledgerContract, func() aggregate.Root { return newLedger() }); err != nil {
		b.Fatal(err)
	}
	return fixture{ser: serializer.NewJSON(types), rec: rec}
}

func (f fixture) unitOfWork(store eventstore.Store) *unitofwork.UnitOfWork {
	return unitofwork.New(store, f.ser, f.rec, unitofwork.WithLogger(nil))
}

func createSQLiteStore(b *testing.B) *eventstore.SQLiteStore {
	b.Helper()
	store, err := eventstore.NewSQLiteStore(filepath.Join(b.TempDir(), "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { store.Close() })
	return store
}
