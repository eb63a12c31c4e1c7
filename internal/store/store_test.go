package store

import (
	"testing"
	"time"

	"github.com/civica/ventanilla/internal/domain"
	"github.com/civica/ventanilla/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Silent())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	err := db.migrate()
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{"tickets", "folio_counters", "contacts"}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

// --- Ticket store tests ---

func sampleTicket(folio string) *domain.Ticket {
	now := time.Now()
	return &domain.Ticket{
		Folio:       folio,
		Type:        domain.TicketTypeWaterLeak,
		Title:       "Fuga en banqueta",
		Description: "Fuga de agua frente al numero 45",
		Status:      domain.TicketStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		Metadata:    map[string]string{"ubicacion": "Col. Centro"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestTicketStore_InsertAndGet(t *testing.T) {
	ts := NewTicketStore(testDB(t))

	require.NoError(t, ts.Insert(sampleTicket("FUG-20260828-0001")))

	got, err := ts.Get("FUG-20260828-0001")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketTypeWaterLeak, got.Type)
	assert.Equal(t, domain.TicketStatusOpen, got.Status)
	assert.Equal(t, "Col. Centro", got.Metadata["ubicacion"])
	assert.Nil(t, got.ResolvedAt)
}

func TestTicketStore_DuplicateFolioRejected(t *testing.T) {
	ts := NewTicketStore(testDB(t))

	require.NoError(t, ts.Insert(sampleTicket("FUG-20260828-0001")))
	assert.Error(t, ts.Insert(sampleTicket("FUG-20260828-0001")))
}

func TestTicketStore_GetMissing(t *testing.T) {
	ts := NewTicketStore(testDB(t))

	_, err := ts.Get("FUG-20260828-9999")
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestTicketStore_Update(t *testing.T) {
	ts := NewTicketStore(testDB(t))
	tk := sampleTicket("FUG-20260828-0002")
	require.NoError(t, ts.Insert(tk))

	resolved := time.Now()
	tk.Status = domain.TicketStatusResolved
	tk.ResolvedAt = &resolved
	tk.UpdatedAt = resolved
	require.NoError(t, ts.Update(tk))

	got, err := ts.Get(tk.Folio)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, got.Status)
	require.NotNil(t, got.ResolvedAt)
}

func TestTicketStore_UpdateMissing(t *testing.T) {
	ts := NewTicketStore(testDB(t))
	tk := sampleTicket("FUG-20260828-0003")
	assert.ErrorIs(t, ts.Update(tk), ErrTicketNotFound)
}

func TestTicketStore_LastFolio(t *testing.T) {
	ts := NewTicketStore(testDB(t))
	require.NoError(t, ts.Insert(sampleTicket("FUG-20260828-0001")))
	require.NoError(t, ts.Insert(sampleTicket("FUG-20260828-0007")))
	require.NoError(t, ts.Insert(sampleTicket("FUG-20260828-0003")))

	folio, ok, err := ts.LastFolio("FUG-20260828-")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "FUG-20260828-0007", folio)
}

func TestTicketStore_LastFolio_None(t *testing.T) {
	ts := NewTicketStore(testDB(t))

	_, ok, err := ts.LastFolio("BAC-20260828-")
	require.NoError(t, err)
	assert.False(t, ok)
}

// --- Folio counter tests ---

func TestNextSequence_StartsAtOne(t *testing.T) {
	ts := NewTicketStore(testDB(t))

	seq, err := ts.NextSequence("FUG", "20260828")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestNextSequence_Monotonic(t *testing.T) {
	ts := NewTicketStore(testDB(t))

	for want := 1; want <= 5; want++ {
		seq, err := ts.NextSequence("FUG", "20260828")
		require.NoError(t, err)
		assert.Equal(t, want, seq)
	}
}

func TestNextSequence_ScopedPerTypeAndDate(t *testing.T) {
	ts := NewTicketStore(testDB(t))

	seq, err := ts.NextSequence("FUG", "20260828")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	seq, err = ts.NextSequence("BAC", "20260828")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	seq, err = ts.NextSequence("FUG", "20260829")
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

// --- Contact store tests ---

func TestContactStore_UpsertAndGet(t *testing.T) {
	cs := NewContactStore(testDB(t))

	require.NoError(t, cs.Upsert(Contact{ID: 42, Name: "Juan Perez", Phone: "555-123-4567", AccountNumber: "12345678"}))

	got, err := cs.Get(42)
	require.NoError(t, err)
	assert.Equal(t, "Juan Perez", got.Name)

	// Upsert refreshes fields.
	require.NoError(t, cs.Upsert(Contact{ID: 42, Name: "Juan A. Perez", AccountNumber: "12345678"}))
	got, err = cs.Get(42)
	require.NoError(t, err)
	assert.Equal(t, "Juan A. Perez", got.Name)
}

func TestContactStore_FindByAccount(t *testing.T) {
	cs := NewContactStore(testDB(t))
	require.NoError(t, cs.Upsert(Contact{ID: 7, Name: "Ana Garcia", AccountNumber: "87654321"}))

	got, err := cs.FindByAccount("87654321")
	require.NoError(t, err)
	assert.EqualValues(t, 7, got.ID)

	_, err = cs.FindByAccount("00000000")
	assert.ErrorIs(t, err, ErrContactNotFound)
}
