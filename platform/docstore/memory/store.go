// Package memory is an in-process docstore used in tests and local development.
package memory

import (
	"context"
	"sync"

	"inspection_portal_backend/platform/docstore"

	"github.com/google/uuid"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpCreate Op = "create"
	OpGet    Op = "get"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpQuery  Op = "query"
	OpScan   Op = "scan"
)

type faultKey struct {
	collection string
	op         Op
}

// Store keeps documents in maps. Documents are copied on the way in and out
// so callers never share state with the store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
	order       map[string][]string
	indexes     *docstore.IndexSet
	faults      map[faultKey]error
	newID       func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIndexes restricts served queries to the catalogue; others report IndexUnavailable.
func WithIndexes(set *docstore.IndexSet) Option {
	return func(s *Store) { s.indexes = set }
}

// WithIDGenerator overrides id generation for Create with an empty id.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]docstore.Document),
		order:       make(map[string][]string),
		faults:      make(map[faultKey]error),
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailOn makes every op on collection return err until cleared.
func (s *Store) FailOn(collection string, op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[faultKey{collection: collection, op: op}] = err
}

// ClearFaults removes all injected failures.
func (s *Store) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[faultKey]error)
}

// Count returns the number of documents in a collection.
func (s *Store) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

func (s *Store) fault(collection string, op Op) error {
	return s.faults[faultKey{collection: collection, op: op}]
}

func (s *Store) Create(_ context.Context, collection, id string, doc docstore.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(collection, OpCreate); err != nil {
		return "", err
	}
	if id == "" {
		id = s.newID()
	}

	coll, ok := s.collections[collection]
	if !ok {
		coll = make(map[string]docstore.Document)
		s.collections[collection] = coll
	}
	if _, exists := coll[id]; exists {
		return "", docstore.ErrAlreadyExists
	}

	stored := docstore.Clone(doc)
	if stored == nil {
		stored = docstore.Document{}
	}
	stored[docstore.IDField] = id
	coll[id] = stored
	s.order[collection] = append(s.order[collection], id)
	return id, nil
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(collection, OpGet); err != nil {
		return nil, false, err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, false, nil
	}
	return docstore.Clone(doc), true, nil
}

func (s *Store) Update(_ context.Context, collection, id string, patch docstore.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(collection, OpUpdate); err != nil {
		return err
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.ErrNotFound
	}
	for k, v := range docstore.Clone(patch) {
		if k == docstore.IDField {
			continue
		}
		doc[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(collection, OpDelete); err != nil {
		return err
	}
	coll := s.collections[collection]
	if _, ok := coll[id]; !ok {
		return nil
	}
	delete(coll, id)
	ids := s.order[collection]
	for i, existing := range ids {
		if existing == id {
			s.order[collection] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Query(_ context.Context, q docstore.Query) (docstore.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(q.Collection, OpQuery); err != nil {
		return docstore.QueryResult{}, err
	}
	if !s.indexes.Covers(q) {
		return docstore.QueryResult{IndexUnavailable: true}, nil
	}
	return docstore.QueryResult{Docs: docstore.Apply(s.snapshot(q.Collection), q)}, nil
}

func (s *Store) Scan(_ context.Context, collection string) ([]docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(collection, OpScan); err != nil {
		return nil, err
	}
	return s.snapshot(collection), nil
}

// snapshot returns copies in insertion order; callers hold the read lock.
func (s *Store) snapshot(collection string) []docstore.Document {
	coll := s.collections[collection]
	out := make([]docstore.Document, 0, len(coll))
	for _, id := range s.order[collection] {
		if doc, ok := coll[id]; ok {
			out = append(out, docstore.Clone(doc))
		}
	}
	return out
}

var _ docstore.Repository = (*Store)(nil)
