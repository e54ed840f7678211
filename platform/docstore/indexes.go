package docstore

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Index is a declared composite index on one collection.
type Index struct {
	Collection string   `yaml:"collection"`
	Fields     []string `yaml:"fields"`
	OrderBy    string   `yaml:"orderBy,omitempty"`
}

// IndexSet is the catalogue of composite indexes a store can serve.
// Queries with at most one filter field and no ordering on another
// field are always served, like single-field indexes on a managed store.
type IndexSet struct {
	Indexes []Index `yaml:"indexes"`
}

// LoadIndexes reads an index catalogue from a YAML file.
func LoadIndexes(path string) (*IndexSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	return ParseIndexes(raw)
}

// ParseIndexes decodes an index catalogue from YAML.
func ParseIndexes(raw []byte) (*IndexSet, error) {
	var set IndexSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("parse index file: %w", err)
	}
	for i, idx := range set.Indexes {
		if strings.TrimSpace(idx.Collection) == "" || len(idx.Fields) == 0 {
			return nil, fmt.Errorf("index %d: collection and fields are required", i)
		}
	}
	return &set, nil
}

// Covers reports whether q can be answered by a declared index.
// A nil set covers everything.
func (s *IndexSet) Covers(q Query) bool {
	if s == nil {
		return true
	}

	fields := filterFields(q.Filters)
	orderField := ""
	if q.OrderBy != nil {
		orderField = q.OrderBy.Field
	}

	if len(fields) == 0 {
		return true
	}
	if len(fields) == 1 && (orderField == "" || orderField == fields[0]) {
		return true
	}

	for _, idx := range s.Indexes {
		if idx.Collection != q.Collection || idx.OrderBy != orderField {
			continue
		}
		if sameFields(idx.Fields, fields) {
			return true
		}
	}
	return false
}

func filterFields(filters []Filter) []string {
	seen := make(map[string]struct{}, len(filters))
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		if _, ok := seen[f.Field]; ok {
			continue
		}
		seen[f.Field] = struct{}{}
		out = append(out, f.Field)
	}
	return out
}

func sameFields(declared, wanted []string) bool {
	if len(declared) != len(wanted) {
		return false
	}
	a := append([]string(nil), declared...)
	b := append([]string(nil), wanted...)
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
