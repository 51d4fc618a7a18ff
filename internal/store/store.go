// Package store persists canvases and their saved documents in Postgres.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/blake2b"

	"github.com/inamate/visualdrag/internal/typeid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS canvases (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	access_hash TEXT NOT NULL,
	width       DOUBLE PRECISION NOT NULL,
	height      DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS canvas_documents (
	id          TEXT PRIMARY KEY,
	canvas_id   TEXT NOT NULL REFERENCES canvases(id) ON DELETE CASCADE,
	version     INTEGER NOT NULL,
	fingerprint BYTEA NOT NULL,
	document    JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (canvas_id, version)
);
`

type Canvas struct {
	ID         string
	Name       string
	AccessHash string
	Width      float64
	Height     float64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type SavedDocument struct {
	ID          string
	CanvasID    string
	Version     int
	Fingerprint []byte
	Document    json.RawMessage
	CreatedAt   time.Time
}

type Store struct {
	pool *pgxpool.Pool
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Fingerprint is the blake2b-256 digest of a document's JSON encoding.
func Fingerprint(doc []byte) []byte {
	sum := blake2b.Sum256(doc)
	return sum[:]
}

func (s *Store) CreateCanvas(ctx context.Context, c Canvas) (*Canvas, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO canvases (id, name, access_hash, width, height)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, access_hash, width, height, created_at, updated_at`,
		c.ID, c.Name, c.AccessHash, c.Width, c.Height)
	out, err := scanCanvas(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create canvas: %w", err)
	}
	return out, nil
}

func (s *Store) GetCanvas(ctx context.Context, id string) (*Canvas, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, access_hash, width, height, created_at, updated_at
		FROM canvases WHERE id = $1`, id)
	c, err := scanCanvas(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get canvas: %w", err)
	}
	return c, nil
}

func (s *Store) ListCanvases(ctx context.Context) ([]Canvas, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, access_hash, width, height, created_at, updated_at
		FROM canvases ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list canvases: %w", err)
	}
	defer rows.Close()

	var out []Canvas
	for rows.Next() {
		c, err := scanCanvas(rows)
		if err != nil {
			return nil, fmt.Errorf("scan canvas: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteCanvas(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM canvases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete canvas: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveDocument stores doc as the next version of the canvas. A document
// whose fingerprint matches the latest version is not stored again; the
// latest version is returned with saved=false.
func (s *Store) SaveDocument(ctx context.Context, canvasID string, doc []byte) (*SavedDocument, bool, error) {
	fp := Fingerprint(doc)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	latest, err := latestDocument(ctx, tx, canvasID)
	nextVersion := 1
	switch {
	case err == nil:
		if bytes.Equal(latest.Fingerprint, fp) {
			return latest, false, nil
		}
		nextVersion = latest.Version + 1
	case !errors.Is(err, ErrNotFound):
		return nil, false, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO canvas_documents (id, canvas_id, version, fingerprint, document)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, canvas_id, version, fingerprint, document, created_at`,
		typeid.NewDocumentID(), canvasID, nextVersion, fp, doc)
	saved, err := scanDocument(row)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, false, ErrExists
		}
		if isForeignKeyError(err) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("insert document: %w", err)
	}

	if _, err := tx.Exec(ctx, `UPDATE canvases SET updated_at = now() WHERE id = $1`, canvasID); err != nil {
		return nil, false, fmt.Errorf("touch canvas: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit save: %w", err)
	}
	return saved, true, nil
}

func (s *Store) LatestDocument(ctx context.Context, canvasID string) (*SavedDocument, error) {
	return latestDocument(ctx, s.pool, canvasID)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func latestDocument(ctx context.Context, q querier, canvasID string) (*SavedDocument, error) {
	row := q.QueryRow(ctx, `
		SELECT id, canvas_id, version, fingerprint, document, created_at
		FROM canvas_documents WHERE canvas_id = $1
		ORDER BY version DESC LIMIT 1`, canvasID)
	d, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get latest document: %w", err)
	}
	return d, nil
}

func scanCanvas(row pgx.Row) (*Canvas, error) {
	var c Canvas
	if err := row.Scan(&c.ID, &c.Name, &c.AccessHash, &c.Width, &c.Height, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanDocument(row pgx.Row) (*SavedDocument, error) {
	var d SavedDocument
	if err := row.Scan(&d.ID, &d.CanvasID, &d.Version, &d.Fingerprint, &d.Document, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}
