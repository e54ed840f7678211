// Package docstore is the persistence gateway: a document store with
// per-collection CRUD, equality queries, and an explicit "index unavailable"
// result that callers answer with a full scan and client-side filtering.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// IDField is the document field that mirrors the document id.
const IDField = "id"

var (
	// ErrNotFound is returned by Update when the document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("document already exists")
)

// Document is a JSON-shaped record.
type Document map[string]any

// Filter is a single field equality predicate.
type Filter struct {
	Field string
	Value any
}

// OrderBy sorts query results on one field.
type OrderBy struct {
	Field string
	Desc  bool
}

// Query selects documents from one collection.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    *OrderBy
}

// QueryResult is either a document list or IndexUnavailable.
type QueryResult struct {
	Docs             []Document
	IndexUnavailable bool
}

// Repository is implemented by every document store backend.
type Repository interface {
	Create(ctx context.Context, collection, id string, doc Document) (string, error)
	Get(ctx context.Context, collection, id string) (Document, bool, error)
	Update(ctx context.Context, collection, id string, patch Document) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, q Query) (QueryResult, error)
	Scan(ctx context.Context, collection string) ([]Document, error)
}

// Source reports which path produced a QueryOrScan result.
type Source int

const (
	SourceIndex Source = iota
	SourceScan
)

// QueryOrScan runs q and, when the store reports a missing index, serves the
// same result from a full collection scan filtered and ordered in process.
func QueryOrScan(ctx context.Context, repo Repository, q Query) ([]Document, Source, error) {
	result, err := repo.Query(ctx, q)
	if err != nil {
		return nil, SourceIndex, err
	}
	if !result.IndexUnavailable {
		return result.Docs, SourceIndex, nil
	}

	all, err := repo.Scan(ctx, q.Collection)
	if err != nil {
		return nil, SourceScan, fmt.Errorf("fallback scan of %s: %w", q.Collection, err)
	}
	return Apply(all, q), SourceScan, nil
}

// Apply filters and orders docs in memory the way a served query would.
func Apply(docs []Document, q Query) []Document {
	out := make([]Document, 0, len(docs))
	for _, doc := range docs {
		if Matches(doc, q.Filters) {
			out = append(out, doc)
		}
	}
	if q.OrderBy != nil {
		field, desc := q.OrderBy.Field, q.OrderBy.Desc
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][field], out[j][field])
			if desc {
				return c > 0
			}
			return c < 0
		})
	}
	return out
}

// Matches reports whether doc satisfies every filter.
func Matches(doc Document, filters []Filter) bool {
	for _, f := range filters {
		if !reflect.DeepEqual(normalize(doc[f.Field]), normalize(f.Value)) {
			return false
		}
	}
	return true
}

// Encode converts a JSON-tagged struct into a Document.
func Encode(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode fills v from doc.
func Decode(doc Document, v any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}

// Clone deep-copies a document through its JSON form.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out, err := Encode(doc)
	if err != nil {
		return Document{}
	}
	return out
}

// normalize gives Go values the shape they have after a JSON round trip,
// so filters built from typed values compare equal to stored documents.
func normalize(v any) any {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return v
	}
	return out
}

// compareValues orders missing values last, numbers numerically, timestamps
// chronologically and everything else by its string form.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	if at, ok := asTime(a); ok {
		if bt, ok := asTime(b); ok {
			return at.Compare(bt)
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

// asTime reads RFC 3339 timestamps; the encoded fraction drops trailing zeros.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if len(t) < len("2006-01-02T15:04:05Z") || t[10] != 'T' {
			return time.Time{}, false
		}
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}
