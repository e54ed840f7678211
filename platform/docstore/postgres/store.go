// Package postgres stores docstore documents as JSONB rows in a single table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"inspection_portal_backend/platform/docstore"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var fieldNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// timestampExpr orders RFC 3339 values chronologically. Other values yield
// NULL and fall through to the text ordering.
const timestampExpr = `CASE WHEN data->>$3 ~ '^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}' THEN (data->>$3)::timestamptz END`

// Store implements docstore.Repository on the documents table.
type Store struct {
	pool    *pgxpool.Pool
	indexes *docstore.IndexSet
}

// New creates a store. A nil index set serves every query.
func New(pool *pgxpool.Pool, indexes *docstore.IndexSet) *Store {
	return &Store{pool: pool, indexes: indexes}
}

func (s *Store) Create(ctx context.Context, collection, id string, doc docstore.Document) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	stored := docstore.Clone(doc)
	if stored == nil {
		stored = docstore.Document{}
	}
	stored[docstore.IDField] = id

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO NOTHING`,
		collection, id, string(data))
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", docstore.ErrAlreadyExists
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, bool, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get document: %w", err)
	}

	doc, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, patch docstore.Document) error {
	clean := docstore.Clone(patch)
	if clean == nil {
		clean = docstore.Document{}
	}
	delete(clean, docstore.IDField)

	data, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("failed to encode patch: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2`,
		collection, id, string(data))
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, q docstore.Query) (docstore.QueryResult, error) {
	if !s.indexes.Covers(q) {
		return docstore.QueryResult{IndexUnavailable: true}, nil
	}

	containment := make(map[string]any, len(q.Filters))
	for _, f := range q.Filters {
		containment[f.Field] = f.Value
	}
	filter, err := json.Marshal(containment)
	if err != nil {
		return docstore.QueryResult{}, fmt.Errorf("failed to encode filter: %w", err)
	}

	query := `SELECT data FROM documents WHERE collection = $1 AND data @> $2::jsonb`
	args := []any{q.Collection, string(filter)}
	if q.OrderBy != nil {
		if !fieldNameRegex.MatchString(q.OrderBy.Field) {
			return docstore.QueryResult{}, fmt.Errorf("invalid order field %q", q.OrderBy.Field)
		}
		direction := "ASC"
		if q.OrderBy.Desc {
			direction = "DESC"
		}
		query += fmt.Sprintf(" ORDER BY %s %s NULLS LAST, data->>$3 %s NULLS LAST, created_at", timestampExpr, direction, direction)
		args = append(args, q.OrderBy.Field)
	} else {
		query += " ORDER BY created_at"
	}

	docs, err := s.collect(ctx, query, args...)
	if err != nil {
		return docstore.QueryResult{}, err
	}
	return docstore.QueryResult{Docs: docs}, nil
}

func (s *Store) Scan(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.collect(ctx, `SELECT data FROM documents WHERE collection = $1 ORDER BY created_at`, collection)
}

func (s *Store) collect(ctx context.Context, query string, args ...any) ([]docstore.Document, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	docs := make([]docstore.Document, 0)
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc, err := decode(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

func decode(data []byte) (docstore.Document, error) {
	var doc docstore.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

var _ docstore.Repository = (*Store)(nil)
