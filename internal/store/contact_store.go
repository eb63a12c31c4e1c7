package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Contact is one entry in the local mirror of the contact-center directory.
type Contact struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
}

// ErrContactNotFound is returned when no contact matches the lookup.
var ErrContactNotFound = errors.New("contact not found")

// ContactStore manages the contact directory mirror used for ticket linkage.
type ContactStore struct {
	db *DB
}

// NewContactStore creates a contact store using the given database.
func NewContactStore(db *DB) *ContactStore {
	return &ContactStore{db: db}
}

// Get returns a contact by id.
func (s *ContactStore) Get(id int64) (*Contact, error) {
	var c Contact
	err := s.db.sql.QueryRow(
		`SELECT id, name, phone, email, account_number FROM contacts WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.AccountNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying contact %d: %w", id, err)
	}
	return &c, nil
}

// FindByAccount returns the contact holding the given service-account
// number, if any.
func (s *ContactStore) FindByAccount(account string) (*Contact, error) {
	var c Contact
	err := s.db.sql.QueryRow(
		`SELECT id, name, phone, email, account_number FROM contacts
		 WHERE account_number = ? ORDER BY updated_at DESC LIMIT 1`, account,
	).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.AccountNumber)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying contact by account %s: %w", account, err)
	}
	return &c, nil
}

// Upsert inserts or refreshes a directory entry.
func (s *ContactStore) Upsert(c Contact) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO contacts (id, name, phone, email, account_number, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   phone = excluded.phone,
		   email = excluded.email,
		   account_number = excluded.account_number,
		   updated_at = excluded.updated_at`,
		c.ID, c.Name, c.Phone, c.Email, c.AccountNumber,
		time.Now().Format(time.DateTime),
	)
	if err != nil {
		return fmt.Errorf("upserting contact %d: %w", c.ID, err)
	}
	return nil
}
