// Package storage is the SQLite backend of the document store. Documents
// live as JSON text in a single table keyed by collection path and id.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ahorro/internal/docstore"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ docstore.Store = (*SQLiteStore)(nil)

// DSN adds the pragmas every connection needs.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	// One connection serializes transactions; a store call made from inside
	// a transaction function would block on it, so always use the tx.
	db.SetMaxOpenConns(1)

	return &SQLiteStore{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

// WithClock replaces the timestamp source, used by tests.
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) accessor() *accessor {
	return &accessor{q: s.queries, now: s.now}
}

func (s *SQLiteStore) Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	return s.accessor().Get(ctx, ref)
}

func (s *SQLiteStore) Set(ctx context.Context, ref docstore.Ref, data map[string]any) error {
	return s.accessor().Set(ctx, ref, data)
}

// Merge reads and rewrites the document in one transaction.
func (s *SQLiteStore) Merge(ctx context.Context, ref docstore.Ref, data map[string]any) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		return tx.Merge(ctx, ref, data)
	})
}

func (s *SQLiteStore) Create(ctx context.Context, ref docstore.Ref, data map[string]any) error {
	return s.accessor().Create(ctx, ref, data)
}

func (s *SQLiteStore) Delete(ctx context.Context, ref docstore.Ref) error {
	return s.accessor().Delete(ctx, ref)
}

func (s *SQLiteStore) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	return s.accessor().Query(ctx, q)
}

func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx docstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	acc := &accessor{q: s.queries.WithTx(sqlTx), now: s.now}
	if err := fn(ctx, acc); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// accessor implements the read/write surface over either the database
// handle or an open transaction.
type accessor struct {
	q   *Queries
	now func() time.Time
}

func (a *accessor) stamp() string {
	return a.now().UTC().Format(time.RFC3339Nano)
}

func (a *accessor) Get(ctx context.Context, ref docstore.Ref) (docstore.Snapshot, error) {
	if err := ref.Validate(); err != nil {
		return docstore.Snapshot{}, err
	}
	row, err := a.q.GetDocument(ctx, GetDocumentParams{Collection: ref.Collection, ID: ref.ID})
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Snapshot{Ref: ref}, nil
	}
	if err != nil {
		return docstore.Snapshot{}, fmt.Errorf("get %s: %w", ref, err)
	}
	return toSnapshot(row)
}

func (a *accessor) Set(ctx context.Context, ref docstore.Ref, data map[string]any) error {
	raw, err := encode(ref, data)
	if err != nil {
		return err
	}
	if err := a.q.UpsertDocument(ctx, UpsertDocumentParams{
		Collection: ref.Collection,
		ID:         ref.ID,
		Data:       raw,
		Now:        a.stamp(),
	}); err != nil {
		return fmt.Errorf("set %s: %w", ref, err)
	}
	return nil
}

// Merge is shallow: top-level keys in data replace those stored.
func (a *accessor) Merge(ctx context.Context, ref docstore.Ref, data map[string]any) error {
	patch, err := docstore.Normalize(data)
	if err != nil {
		return err
	}
	current, err := a.Get(ctx, ref)
	if err != nil {
		return err
	}
	merged := make(map[string]any, len(current.Data)+len(patch))
	for k, v := range current.Data {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return a.Set(ctx, ref, merged)
}

func (a *accessor) Create(ctx context.Context, ref docstore.Ref, data map[string]any) error {
	raw, err := encode(ref, data)
	if err != nil {
		return err
	}
	n, err := a.q.InsertDocument(ctx, InsertDocumentParams{
		Collection: ref.Collection,
		ID:         ref.ID,
		Data:       raw,
		Now:        a.stamp(),
	})
	if err != nil {
		return fmt.Errorf("create %s: %w", ref, err)
	}
	if n == 0 {
		return fmt.Errorf("create %s: %w", ref, docstore.ErrAlreadyExists)
	}
	return nil
}

func (a *accessor) Delete(ctx context.Context, ref docstore.Ref) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if err := a.q.DeleteDocument(ctx, DeleteDocumentParams{Collection: ref.Collection, ID: ref.ID}); err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

func (a *accessor) Query(ctx context.Context, q docstore.Query) ([]docstore.Snapshot, error) {
	stmt, args, err := buildQuery(q)
	if err != nil {
		return nil, err
	}
	rows, err := a.q.listDocuments(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	snaps := make([]docstore.Snapshot, 0, len(rows))
	for _, row := range rows {
		snap, err := toSnapshot(row)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func encode(ref docstore.Ref, data map[string]any) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	norm, err := docstore.Normalize(data)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(norm)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", ref, err)
	}
	return string(raw), nil
}

func toSnapshot(row Document) (docstore.Snapshot, error) {
	ref := docstore.Doc(row.Collection, row.ID)
	var data map[string]any
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return docstore.Snapshot{}, fmt.Errorf("decode %s: %w", ref, err)
	}
	if data == nil {
		data = map[string]any{}
	}
	updated, _ := time.Parse(time.RFC3339Nano, row.UpdatedAt)
	return docstore.Snapshot{Ref: ref, Data: data, Exists: true, UpdatedAt: updated}, nil
}
