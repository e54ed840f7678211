package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inspection_portal_backend/internal/rejectedorders/repository"
	"inspection_portal_backend/platform/docstore/memory"
	"inspection_portal_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// withIdentity stands in for AuthRequired.
func withIdentity(branchID string, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, roles)
		if branchID != "" {
			c.Set(httpkit.ContextBranchIDKey, branchID)
		}
		c.Next()
	}
}

func TestListScopedByRole(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := repository.New(memory.New())
	ctx := context.Background()
	for i, branch := range []string{"branch-1", "branch-2"} {
		_, err := repo.Create(ctx, repository.RejectedOrder{
			AppointmentID:    "appt-" + branch,
			ScheduledVisitID: "visit-" + branch,
			BranchID:         branch,
			RejectedAt:       time.Date(2025, 3, 1, i, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		mw     gin.HandlerFunc
		query  string
		status int
		total  int
	}{
		{"admin all", withIdentity("", httpkit.RoleAdmin), "", http.StatusOK, 2},
		{"admin filtered", withIdentity("", httpkit.RoleAdmin), "?branchId=branch-2", http.StatusOK, 1},
		{"manager own branch", withIdentity("branch-1", httpkit.RoleBranchManager), "?branchId=branch-2", http.StatusOK, 1},
		{"manager without branch", withIdentity("", httpkit.RoleBranchManager), "", http.StatusForbidden, 0},
		{"inspector", withIdentity("branch-1", httpkit.RoleInspector), "", http.StatusForbidden, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := gin.New()
			New(repo).RegisterRoutes(engine.Group("/rejected-orders", tt.mw))

			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rejected-orders"+tt.query, nil))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if tt.status != http.StatusOK {
				return
			}
			var body struct {
				Total int `json:"total"`
			}
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Total != tt.total {
				t.Fatalf("expected %d orders, got %d", tt.total, body.Total)
			}
		})
	}
}
