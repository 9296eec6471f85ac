package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps secrets in a local SQLite table, encrypted at rest with
// AES-256-GCM.
type SQLiteStore struct {
	db        *sql.DB
	encryptor Encryptor
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the secrets table on the given database.
func NewSQLiteStore(db *sql.DB, enc Encryptor) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, encryptor: enc}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create secrets schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS secrets (
		reference  TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get resolves and decrypts a secret by reference.
func (s *SQLiteStore) Get(ctx context.Context, reference string) (string, error) {
	var encrypted string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM secrets WHERE reference = ?`, reference,
	).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, reference)
	}
	if err != nil {
		return "", err
	}

	value, err := s.encryptor.Decrypt(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt secret %s: %w", reference, err)
	}
	return value, nil
}

// Put encrypts and stores a secret under the given reference.
func (s *SQLiteStore) Put(ctx context.Context, reference, value string) error {
	encrypted, err := s.encryptor.Encrypt(value)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret %s: %w", reference, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO secrets (reference, value) VALUES (?, ?)
		ON CONFLICT(reference) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, reference, encrypted)
	return err
}

// Delete removes a secret.
func (s *SQLiteStore) Delete(ctx context.Context, reference string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE reference = ?`, reference)
	return err
}
