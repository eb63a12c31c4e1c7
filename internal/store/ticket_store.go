package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/civica/ventanilla/internal/domain"
)

// ErrTicketNotFound is returned when no ticket matches the given folio.
var ErrTicketNotFound = errors.New("ticket not found")

// TicketStore persists case records keyed by folio.
type TicketStore struct {
	db *DB
}

// NewTicketStore creates a ticket store using the given database.
func NewTicketStore(db *DB) *TicketStore {
	return &TicketStore{db: db}
}

// NextSequence atomically allocates the next folio sequence number for a
// type code and date. The upsert-with-increment is a single statement, so
// concurrent creators for the same type+date can never observe the same
// value.
func (s *TicketStore) NextSequence(typeCode, date string) (int, error) {
	var seq int
	err := s.db.sql.QueryRow(
		`INSERT INTO folio_counters (type_code, date, seq) VALUES (?, ?, 1)
		 ON CONFLICT(type_code, date) DO UPDATE SET seq = seq + 1
		 RETURNING seq`,
		typeCode, date,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocating folio sequence: %w", err)
	}
	return seq, nil
}

// LastFolio returns the lexicographically-last folio sharing the given
// type+date prefix, or ok=false when none exists.
func (s *TicketStore) LastFolio(prefix string) (string, bool, error) {
	var folio string
	err := s.db.sql.QueryRow(
		`SELECT folio FROM tickets WHERE folio LIKE ? ORDER BY folio DESC LIMIT 1`,
		prefix+"%",
	).Scan(&folio)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("querying last folio: %w", err)
	}
	return folio, true, nil
}

// Insert persists a new ticket.
func (s *TicketStore) Insert(t *domain.Ticket) error {
	var metadata sql.NullString
	if len(t.Metadata) > 0 {
		if data, err := json.Marshal(t.Metadata); err == nil {
			metadata = sql.NullString{String: string(data), Valid: true}
		}
	}

	_, err := s.db.sql.Exec(
		`INSERT INTO tickets (folio, type, title, description, status, priority,
		                      account_number, contact_id, conversation_id, inbox_id,
		                      client_name, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Folio, string(t.Type), t.Title, t.Description, string(t.Status), string(t.Priority),
		t.AccountNumber, t.Contact.ContactID, t.Contact.ConversationID, t.Contact.InboxID,
		t.ClientName, metadata,
		t.CreatedAt.Format(time.DateTime), t.UpdatedAt.Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("inserting ticket %s: %w", t.Folio, err)
	}
	return nil
}

// Get returns a ticket by folio.
func (s *TicketStore) Get(folio string) (*domain.Ticket, error) {
	var t domain.Ticket
	var typ, status, priority, createdAt, updatedAt string
	var resolvedAt, metadata sql.NullString

	err := s.db.sql.QueryRow(
		`SELECT folio, type, title, description, status, priority,
		        account_number, contact_id, conversation_id, inbox_id,
		        client_name, metadata, created_at, updated_at, resolved_at
		 FROM tickets WHERE folio = ?`, folio,
	).Scan(
		&t.Folio, &typ, &t.Title, &t.Description, &status, &priority,
		&t.AccountNumber, &t.Contact.ContactID, &t.Contact.ConversationID, &t.Contact.InboxID,
		&t.ClientName, &metadata, &createdAt, &updatedAt, &resolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying ticket %s: %w", folio, err)
	}

	t.Type = domain.TicketType(typ)
	t.Status = domain.TicketStatus(status)
	t.Priority = domain.TicketPriority(priority)
	t.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	t.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	if resolvedAt.Valid && resolvedAt.String != "" {
		ts, perr := time.Parse(time.DateTime, resolvedAt.String)
		if perr == nil {
			t.ResolvedAt = &ts
		}
	}
	if metadata.Valid && metadata.String != "" {
		_ = json.Unmarshal([]byte(metadata.String), &t.Metadata)
	}

	return &t, nil
}

// Update writes back the mutable fields of a ticket. The folio and creation
// timestamp are never touched.
func (s *TicketStore) Update(t *domain.Ticket) error {
	var resolvedAt sql.NullString
	if t.ResolvedAt != nil {
		resolvedAt = sql.NullString{String: t.ResolvedAt.Format(time.DateTime), Valid: true}
	}
	var metadata sql.NullString
	if len(t.Metadata) > 0 {
		if data, err := json.Marshal(t.Metadata); err == nil {
			metadata = sql.NullString{String: string(data), Valid: true}
		}
	}

	res, err := s.db.sql.Exec(
		`UPDATE tickets SET status = ?, priority = ?, description = ?, metadata = ?,
		        updated_at = ?, resolved_at = ?
		 WHERE folio = ?`,
		string(t.Status), string(t.Priority), t.Description, metadata,
		t.UpdatedAt.Format(time.DateTime), resolvedAt, t.Folio,
	)
	if err != nil {
		return fmt.Errorf("updating ticket %s: %w", t.Folio, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrTicketNotFound
	}
	return nil
}
