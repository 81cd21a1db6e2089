package blobstore

import (
	"context"
	"database/sql"
	"errors"
)

// MySQLStore keeps blobs in the `signature_blobs` table next to the
// records.  It is the default backend and needs no extra infrastructure.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// Put stores data under key and returns key as the reference.  Writing the
// same key twice replaces the bytes.
func (s *MySQLStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signature_blobs (ref, content_type, data) VALUES (?, ?, ?)
		 ON DUPLICATE KEY UPDATE content_type = VALUES(content_type), data = VALUES(data)`,
		key, ContentTypePNG, data)
	if err != nil {
		return "", err
	}
	return key, nil
}

// Get returns the bytes stored under ref.
func (s *MySQLStore) Get(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM signature_blobs WHERE ref = ? LIMIT 1", ref).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return data, err
}
