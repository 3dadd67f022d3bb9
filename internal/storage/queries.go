package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Document is a row of the documents table.
type Document struct {
	Collection string
	ID         string
	Data       string
	CreatedAt  string
	UpdatedAt  string
}

const getDocument = `-- name: GetDocument :one
SELECT collection, id, data, created_at, updated_at
FROM documents
WHERE collection = ? AND id = ?
`

type GetDocumentParams struct {
	Collection string
	ID         string
}

func (q *Queries) GetDocument(ctx context.Context, arg GetDocumentParams) (Document, error) {
	row := q.db.QueryRowContext(ctx, getDocument, arg.Collection, arg.ID)
	var i Document
	err := row.Scan(
		&i.Collection,
		&i.ID,
		&i.Data,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertDocument = `-- name: UpsertDocument :exec
INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
    data = excluded.data,
    updated_at = excluded.updated_at
`

type UpsertDocumentParams struct {
	Collection string
	ID         string
	Data       string
	Now        string
}

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	_, err := q.db.ExecContext(ctx, upsertDocument,
		arg.Collection,
		arg.ID,
		arg.Data,
		arg.Now,
		arg.Now,
	)
	return err
}

const insertDocument = `-- name: InsertDocument :execrows
INSERT INTO documents (collection, id, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO NOTHING
`

type InsertDocumentParams struct {
	Collection string
	ID         string
	Data       string
	Now        string
}

// InsertDocument returns 0 affected rows when the document already exists.
func (q *Queries) InsertDocument(ctx context.Context, arg InsertDocumentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertDocument,
		arg.Collection,
		arg.ID,
		arg.Data,
		arg.Now,
		arg.Now,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteDocument = `-- name: DeleteDocument :exec
DELETE FROM documents
WHERE collection = ? AND id = ?
`

type DeleteDocumentParams struct {
	Collection string
	ID         string
}

func (q *Queries) DeleteDocument(ctx context.Context, arg DeleteDocumentParams) error {
	_, err := q.db.ExecContext(ctx, deleteDocument, arg.Collection, arg.ID)
	return err
}

const countDocuments = `-- name: CountDocuments :one
SELECT COUNT(*) FROM documents WHERE collection = ?
`

func (q *Queries) CountDocuments(ctx context.Context, collection string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countDocuments, collection)
	var count int64
	err := row.Scan(&count)
	return count, err
}

// listDocuments runs a statement built by buildQuery.
func (q *Queries) listDocuments(ctx context.Context, query string, args ...interface{}) ([]Document, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Document
	for rows.Next() {
		var i Document
		if err := rows.Scan(
			&i.Collection,
			&i.ID,
			&i.Data,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
