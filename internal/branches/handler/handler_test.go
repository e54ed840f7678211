package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"inspection_portal_backend/internal/branches/repository"
	"inspection_portal_backend/platform/docstore/memory"
	"inspection_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

func TestUpsertThenResolveManager(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := repository.New(memory.New())
	engine := gin.New()
	New(repo, validator.New()).RegisterRoutes(engine.Group("/branches"))

	body := `{"name":"North","managerId":"mgr-1","managerEmail":"morgan@example.com"}`
	req := httptest.NewRequest(http.MethodPut, "/branches/branch-1", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	manager, err := repo.ManagerFor(t.Context(), "branch-1")
	if err != nil {
		t.Fatalf("ManagerFor returned error: %v", err)
	}
	if manager.UserID != "mgr-1" || manager.Email != "morgan@example.com" {
		t.Fatalf("unexpected manager %+v", manager)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/branches/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpsertValidatesEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	New(repository.New(memory.New()), validator.New()).RegisterRoutes(engine.Group("/branches"))

	req := httptest.NewRequest(http.MethodPut, "/branches/branch-1", bytes.NewBufferString(`{"name":"North","managerEmail":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
