package docstore_test

import (
	"context"
	"errors"
	"testing"

	"inspection_portal_backend/platform/docstore"
	"inspection_portal_backend/platform/docstore/memory"
)

const testIndexesYAML = `
indexes:
  - collection: appointments
    fields: [inspectorId, scheduledDate]
  - collection: appointments
    fields: [branchId]
    orderBy: scheduledDate
`

func seedAppointments(t *testing.T, store docstore.Repository) {
	t.Helper()
	docs := []docstore.Document{
		{"inspectorId": "insp-1", "scheduledDate": "2025-03-10", "branchId": "b1", "durationMinutes": 60},
		{"inspectorId": "insp-1", "scheduledDate": "2025-03-11", "branchId": "b1", "durationMinutes": 30},
		{"inspectorId": "insp-2", "scheduledDate": "2025-03-10", "branchId": "b2", "durationMinutes": 45},
	}
	for _, doc := range docs {
		if _, err := store.Create(context.Background(), "appointments", "", doc); err != nil {
			t.Fatalf("seed create failed: %v", err)
		}
	}
}

func TestQueryOrScanUsesIndexWhenDeclared(t *testing.T) {
	set, err := docstore.ParseIndexes([]byte(testIndexesYAML))
	if err != nil {
		t.Fatalf("ParseIndexes returned error: %v", err)
	}
	store := memory.New(memory.WithIndexes(set))
	seedAppointments(t, store)

	docs, source, err := docstore.QueryOrScan(context.Background(), store, docstore.Query{
		Collection: "appointments",
		Filters: []docstore.Filter{
			{Field: "inspectorId", Value: "insp-1"},
			{Field: "scheduledDate", Value: "2025-03-10"},
		},
	})
	if err != nil {
		t.Fatalf("QueryOrScan returned error: %v", err)
	}
	if source != docstore.SourceIndex {
		t.Fatalf("expected index source, got %v", source)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

func TestQueryOrScanFallsBackWhenIndexMissing(t *testing.T) {
	store := memory.New(memory.WithIndexes(&docstore.IndexSet{}))
	seedAppointments(t, store)

	q := docstore.Query{
		Collection: "appointments",
		Filters: []docstore.Filter{
			{Field: "inspectorId", Value: "insp-1"},
			{Field: "branchId", Value: "b1"},
		},
		OrderBy: &docstore.OrderBy{Field: "scheduledDate", Desc: true},
	}

	result, err := store.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if !result.IndexUnavailable {
		t.Fatalf("expected IndexUnavailable for undeclared composite query")
	}

	docs, source, err := docstore.QueryOrScan(context.Background(), store, q)
	if err != nil {
		t.Fatalf("QueryOrScan returned error: %v", err)
	}
	if source != docstore.SourceScan {
		t.Fatalf("expected scan source, got %v", source)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0]["scheduledDate"] != "2025-03-11" {
		t.Fatalf("expected descending order, got first date %v", docs[0]["scheduledDate"])
	}
}

func TestQueryOrScanPropagatesScanFailure(t *testing.T) {
	store := memory.New(memory.WithIndexes(&docstore.IndexSet{}))
	seedAppointments(t, store)
	store.FailOn("appointments", memory.OpScan, errors.New("unavailable"))

	_, _, err := docstore.QueryOrScan(context.Background(), store, docstore.Query{
		Collection: "appointments",
		Filters: []docstore.Filter{
			{Field: "inspectorId", Value: "insp-1"},
			{Field: "scheduledDate", Value: "2025-03-10"},
		},
	})
	if err == nil {
		t.Fatalf("expected scan failure to propagate")
	}
}

func TestMatchesNormalizesTypedValues(t *testing.T) {
	doc := docstore.Document{"durationMinutes": float64(60), "status": "scheduled"}
	if !docstore.Matches(doc, []docstore.Filter{{Field: "durationMinutes", Value: 60}}) {
		t.Fatalf("expected int filter to match JSON number")
	}
	type status string
	if !docstore.Matches(doc, []docstore.Filter{{Field: "status", Value: status("scheduled")}}) {
		t.Fatalf("expected named string type to match")
	}
	if docstore.Matches(doc, []docstore.Filter{{Field: "missing", Value: "x"}}) {
		t.Fatalf("expected missing field not to match")
	}
}

func TestIndexSetCoversSingleFieldQueries(t *testing.T) {
	set := &docstore.IndexSet{}
	single := docstore.Query{Collection: "visits", Filters: []docstore.Filter{{Field: "publicToken", Value: "t"}}}
	if !set.Covers(single) {
		t.Fatalf("expected single-field equality to be served")
	}
	ordered := single
	ordered.OrderBy = &docstore.OrderBy{Field: "createdAt"}
	if set.Covers(ordered) {
		t.Fatalf("expected ordering on another field to need a composite index")
	}
}

func TestParseIndexesRejectsIncompleteEntries(t *testing.T) {
	if _, err := docstore.ParseIndexes([]byte("indexes:\n  - collection: appointments\n")); err == nil {
		t.Fatalf("expected error for index without fields")
	}
}

func TestShippedCatalogueCoversConflictLookup(t *testing.T) {
	set, err := docstore.LoadIndexes("indexes.yaml")
	if err != nil {
		t.Fatalf("LoadIndexes returned error: %v", err)
	}
	q := docstore.Query{
		Collection: "appointments",
		Filters: []docstore.Filter{
			{Field: "scheduledDate", Value: "2025-03-10"},
			{Field: "inspectorId", Value: "insp-1"},
		},
	}
	if !set.Covers(q) {
		t.Fatalf("expected inspector/date lookup to be indexed")
	}
}

func TestApplyOrdersTimestampsChronologically(t *testing.T) {
	docs := []docstore.Document{
		{"id": "later", "createdAt": "2025-03-01T08:00:00.12Z"},
		{"id": "earlier", "createdAt": "2025-03-01T08:00:00.1Z"},
		{"id": "first", "createdAt": "2025-03-01T08:00:00Z"},
	}
	out := docstore.Apply(docs, docstore.Query{
		Collection: "rejected_orders",
		OrderBy:    &docstore.OrderBy{Field: "createdAt"},
	})
	got := []any{out[0]["id"], out[1]["id"], out[2]["id"]}
	if got[0] != "first" || got[1] != "earlier" || got[2] != "later" {
		t.Fatalf("expected chronological order, got %v", got)
	}

	dates := docstore.Apply([]docstore.Document{
		{"scheduledDate": "2025-03-11"},
		{"scheduledDate": "2025-03-10"},
	}, docstore.Query{Collection: "appointments", OrderBy: &docstore.OrderBy{Field: "scheduledDate"}})
	if dates[0]["scheduledDate"] != "2025-03-10" {
		t.Fatalf("expected plain dates to keep string order, got %v", dates[0]["scheduledDate"])
	}
}
