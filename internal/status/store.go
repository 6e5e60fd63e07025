package status

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no document has the requested uid.
var ErrNotFound = errors.New("document not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    uid              TEXT PRIMARY KEY,
    case_id          TEXT NOT NULL,
    upload_timestamp INTEGER NOT NULL,
    active           TEXT NOT NULL DEFAULT 'active',
    data             TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_case ON documents(case_id, upload_timestamp);
`

// Store persists document records in SQLite. Each record is kept as a JSON
// blob next to the columns it is queried by.
type Store struct {
	db *sql.DB
}

// NewStore applies the schema and returns a store backed by db.
func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("status store: DB is required")
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("status store schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Insert stores a new document.
func (s *Store) Insert(ctx context.Context, doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.UID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (uid, case_id, upload_timestamp, active, data) VALUES (?, ?, ?, ?, ?)`,
		doc.UID, doc.CaseID, doc.UploadTimestamp.UnixNano(), doc.Active, string(data))
	if err != nil {
		return fmt.Errorf("failed to insert document %s: %w", doc.UID, err)
	}
	return nil
}

// Get loads a document by uid.
func (s *Store) Get(ctx context.Context, uid string) (*Document, error) {
	return get(ctx, s.db, uid)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func get(ctx context.Context, q queryer, uid string) (*Document, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM documents WHERE uid = ?`, uid).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", uid, err)
	}
	var doc Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", uid, err)
	}
	return &doc, nil
}

// Update applies fn to the stored document inside a transaction and writes
// the result back. Returning an error from fn aborts the update.
func (s *Store) Update(ctx context.Context, uid string, fn func(*Document) error) (*Document, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update of %s: %w", uid, err)
	}
	defer func() { _ = tx.Rollback() }()

	doc, err := get(ctx, tx, uid)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", uid, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET case_id = ?, active = ?, data = ? WHERE uid = ?`,
		doc.CaseID, doc.Active, string(data), uid); err != nil {
		return nil, fmt.Errorf("failed to update document %s: %w", uid, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update of %s: %w", uid, err)
	}
	return doc, nil
}

// ListByCase returns the documents of a case ordered by upload time.
func (s *Store) ListByCase(ctx context.Context, caseID string) ([]*Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM documents WHERE case_id = ? ORDER BY upload_timestamp, uid`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents of case %s: %w", caseID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*Document
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		out = append(out, &doc)
	}
	return out, rows.Err()
}
