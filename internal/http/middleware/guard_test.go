package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avlonitis/go-shop-backend/internal/auth"
)

func guardRouter(t *testing.T, check auth.CheckFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cache := auth.NewPermissionCache(check, zerolog.Nop())
	r := gin.New()
	r.GET("/admin/ping", AdminGuard(cache), func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func TestAdminGuard_DeniedGetsRedirectHint(t *testing.T) {
	r := guardRouter(t, func(ctx context.Context, id auth.Identity) (bool, error) {
		return false, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d; want 403", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "forbidden" || body["redirect_to"] != "/" {
		t.Fatalf("body = %v", body)
	}
	// JSON numbers decode as float64.
	if body["after_ms"] != float64(1500) {
		t.Fatalf("after_ms = %v; want 1500", body["after_ms"])
	}
}

func TestAdminGuard_GrantedForwardsIdentity(t *testing.T) {
	var seen auth.Identity
	r := guardRouter(t, func(ctx context.Context, id auth.Identity) (bool, error) {
		seen = id
		return true, nil
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.Header.Set("X-User-ID", "admin-7")
	req.Header.Set("X-User-Email", "ops@example.com")
	req.Header.Set("Authorization", "Bearer tok")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "pong" {
		t.Fatalf("status = %d, body %q", w.Code, w.Body.String())
	}
	if seen.UserID != "admin-7" || seen.Email != "ops@example.com" || seen.Token != "Bearer tok" {
		t.Fatalf("identity = %+v", seen)
	}
}

func TestAdminGuard_CheckFailureDenies(t *testing.T) {
	r := guardRouter(t, func(ctx context.Context, id auth.Identity) (bool, error) {
		return true, context.DeadlineExceeded
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d; want fail-closed 403", w.Code)
	}
}
