package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create tickets",
		SQL: `
			CREATE TABLE tickets (
				folio           TEXT PRIMARY KEY,
				type            TEXT NOT NULL,
				title           TEXT NOT NULL,
				description     TEXT NOT NULL DEFAULT '',
				status          TEXT NOT NULL DEFAULT 'abierta',
				priority        TEXT NOT NULL DEFAULT 'media',
				account_number  TEXT NOT NULL DEFAULT '',
				contact_id      INTEGER NOT NULL DEFAULT 0,
				conversation_id TEXT NOT NULL DEFAULT '',
				inbox_id        INTEGER NOT NULL DEFAULT 0,
				client_name     TEXT NOT NULL DEFAULT '',
				metadata        TEXT,
				created_at      TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at      TEXT NOT NULL DEFAULT (datetime('now')),
				resolved_at     TEXT
			);

			CREATE INDEX idx_tickets_type ON tickets (type);
			CREATE INDEX idx_tickets_status ON tickets (status);
			CREATE INDEX idx_tickets_account ON tickets (account_number);
		`,
	},
	{
		Version: 2,
		Name:    "create folio counters",
		SQL: `
			CREATE TABLE folio_counters (
				type_code  TEXT NOT NULL,
				date       TEXT NOT NULL,
				seq        INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (type_code, date)
			);
		`,
	},
	{
		Version: 3,
		Name:    "create contact directory mirror",
		SQL: `
			CREATE TABLE contacts (
				id             INTEGER PRIMARY KEY,
				name           TEXT NOT NULL DEFAULT '',
				phone          TEXT NOT NULL DEFAULT '',
				email          TEXT NOT NULL DEFAULT '',
				account_number TEXT NOT NULL DEFAULT '',
				updated_at     TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_contacts_account ON contacts (account_number);
		`,
	},
}
