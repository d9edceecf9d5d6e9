package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Get returns the value stored under key. found is false when the key has
// never been written or was deleted.
func (s *Store) Get(key string) (value string, found bool, err error) {
	err = s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get record %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(key, value string) error {
	if _, err := s.db.Exec(upsertRecord, key, value, now()); err != nil {
		return fmt.Errorf("set record %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete record %q: %w", key, err)
	}
	return nil
}

// Apply writes every entry of sets and removes every key in deletes in a
// single transaction.
func (s *Store) Apply(sets map[string]string, deletes []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	defer tx.Rollback()

	ts := now()
	for k, v := range sets {
		if _, err := tx.Exec(upsertRecord, k, v, ts); err != nil {
			return fmt.Errorf("apply set %q: %w", k, err)
		}
	}
	for _, k := range deletes {
		if _, err := tx.Exec(`DELETE FROM kv WHERE key = ?`, k); err != nil {
			return fmt.Errorf("apply delete %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

// Records lists every stored record, ordered by key.
func (s *Store) Records() ([]Record, error) {
	rows, err := s.db.Query(`SELECT key, value, updated_at FROM kv ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var updatedAt string
		if err := rows.Scan(&r.Key, &r.Value, &updatedAt); err != nil {
			return nil, err
		}
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		records = append(records, r)
	}
	return records, rows.Err()
}

const upsertRecord = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
