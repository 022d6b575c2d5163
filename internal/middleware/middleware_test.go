package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tailor-pos/internal/auth"
	"tailor-pos/internal/config"
	"tailor-pos/internal/models"
	"tailor-pos/internal/store"
)

type fakeUsers map[string]*models.User

func (f fakeUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func setup(t *testing.T) (*AuthMiddleware, *auth.JWTManager, fakeUsers) {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpirationHours = 1
	jm := auth.NewJWTManager(cfg)
	users := fakeUsers{
		"admin":   {ID: "admin", Username: "boss", Role: models.RoleAdmin, IsActive: true},
		"cashier": {ID: "cashier", Username: "mona", Role: models.RoleCashier, BranchID: "b1", IsActive: true},
		"gone":    {ID: "gone", Username: "old", Role: models.RoleAdmin, IsActive: false},
	}
	return NewAuthMiddleware(jm, users), jm, users
}

func bearer(t *testing.T, jm *auth.JWTManager, u *models.User) string {
	t.Helper()
	tok, err := jm.GenerateToken(u)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + tok
}

func TestRequireRole(t *testing.T) {
	m, jm, users := setup(t)
	var seenBranch string
	h := m.RequireRole(models.RoleAdmin, models.RoleManager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenBranch, _ = GetBranchIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bad format", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"admin", bearer(t, jm, users["admin"]), http.StatusNoContent},
		{"cashier", bearer(t, jm, users["cashier"]), http.StatusForbidden},
		{"deactivated", bearer(t, jm, users["gone"]), http.StatusForbidden},
		{"deleted", bearer(t, jm, &models.User{ID: "ghost", Role: models.RoleAdmin}), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
	if seenBranch != "" {
		t.Fatalf("admin branch in context = %q", seenBranch)
	}
}

func TestAuthenticateUsesCurrentRole(t *testing.T) {
	m, jm, users := setup(t)
	token := bearer(t, jm, users["cashier"])
	users["cashier"].Role = models.RoleManager

	var role string
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, _ = GetRoleFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("Authorization", token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if role != models.RoleManager {
		t.Fatalf("role = %q", role)
	}
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPILoggerWritesLine(t *testing.T) {
	lines := make(chan string, 1)
	m := &APILogger{entries: make(chan accessEntry, 4), logf: func(format string, args ...any) {
		lines <- format
	}}
	go m.run()
	defer m.Close()

	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/sales", nil))
	if got := <-lines; got == "" {
		t.Fatal("empty log line")
	}
	select {
	case extra := <-lines:
		t.Fatalf("health check was logged: %s", extra)
	default:
	}
}
