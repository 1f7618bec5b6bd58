// Package mediaproxy maps source-site image URLs to opaque ids so clients
// never see or hit the origin host directly.
package mediaproxy

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS image_mappings (
	image_id   TEXT PRIMARY KEY,
	source_url TEXT NOT NULL UNIQUE,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_image_mappings_url ON image_mappings(source_url);
`

// Store persists the id-to-URL mapping in SQLite. Ids are keyed HMACs of the
// source URL, so the same URL always maps to the same id across restarts and
// ids cannot be forged or enumerated without the secret.
type Store struct {
	db     *sql.DB
	secret []byte
	logger *zap.Logger
}

// Open opens (or creates) the mapping database at dbPath.
func Open(dbPath, secret string, logger *zap.Logger) (*Store, error) {
	if secret == "" {
		return nil, fmt.Errorf("media proxy secret must be set")
	}
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open media proxy db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply media proxy schema: %w", err)
	}
	return &Store{db: db, secret: []byte(secret), logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// IDFor returns the opaque id for a source URL, inserting the mapping on
// first sight. Sentinel and empty URLs yield "".
func (s *Store) IDFor(ctx context.Context, sourceURL string) (string, error) {
	switch sourceURL {
	case "", "N/A", "Unknown":
		return "", nil
	}

	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(sourceURL))
	id := "img_" + hex.EncodeToString(mac.Sum(nil))[:16]

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO image_mappings (image_id, source_url) VALUES (?, ?)
		 ON CONFLICT(source_url) DO NOTHING`,
		id, sourceURL,
	)
	if err != nil {
		return "", fmt.Errorf("store image mapping: %w", err)
	}
	return id, nil
}

// URLFor resolves an opaque id back to its source URL. A missing id returns
// sql.ErrNoRows wrapped.
func (s *Store) URLFor(ctx context.Context, imageID string) (string, error) {
	var u string
	err := s.db.QueryRowContext(ctx,
		`SELECT source_url FROM image_mappings WHERE image_id = ?`, imageID,
	).Scan(&u)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Warn("image id not mapped", zap.String("image_id", imageID))
		}
		return "", fmt.Errorf("lookup image id %q: %w", imageID, err)
	}
	return u, nil
}

// Count reports how many mappings exist, for the stats endpoint.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM image_mappings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count image mappings: %w", err)
	}
	return n, nil
}
