package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRequireNetworkPermission(t *testing.T) {
	tests := []struct {
		name   string
		user   *AppUser
		status int
	}{
		{name: "anonymous", user: nil, status: http.StatusUnauthorized},
		{name: "no permissions", user: &AppUser{UserID: 1}, status: http.StatusForbidden},
		{name: "other action", user: &AppUser{UserID: 1, Permissions: []string{PermissionNetworkReload}}, status: http.StatusForbidden},
		{name: "own action", user: &AppUser{UserID: 1, Permissions: []string{PermissionNetworkRebuild}}, status: http.StatusNoContent},
		{name: "network admin", user: &AppUser{UserID: 1, Permissions: []string{PermissionNetworkAdmin}}, status: http.StatusNoContent},
	}

	e := echo.New()
	handler := RequireNetworkPermission(PermissionNetworkRebuild)(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/network/rebuild", nil)
			rec := httptest.NewRecorder()
			c := &AppContext{Context: e.NewContext(req, rec), App: &App{}, User: tt.user}

			if err := handler(c); err != nil {
				t.Fatalf("handler: %v", err)
			}
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusForbidden && !strings.Contains(rec.Body.String(), "network.rebuild or network.admin") {
				t.Fatalf("forbidden body does not name the permissions: %s", rec.Body.String())
			}
		})
	}
}

func TestHasAnyPermission(t *testing.T) {
	user := &AppUser{Permissions: []string{PermissionNetworkReload}}
	if !HasAnyPermission(user, PermissionNetworkRebuild, PermissionNetworkReload) {
		t.Fatal("expected a match on network.reload")
	}
	if HasAnyPermission(user, PermissionNetworkAdmin) {
		t.Fatal("unexpected match on network.admin")
	}
	if HasAnyPermission(nil, PermissionNetworkReload) {
		t.Fatal("nil user must not match")
	}
}
