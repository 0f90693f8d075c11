package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/onlycars/onlycars-backend/pkg/auth"
	"github.com/onlycars/onlycars-backend/pkg/config"
	"github.com/onlycars/onlycars-backend/pkg/enums"
	"github.com/onlycars/onlycars-backend/pkg/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "onlycars-test",
		ExpirationMinutes: 5,
	}
}

func TestAuthSeedsContextFromToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		Role:   enums.RoleDriver,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var gotUser string
	var gotRole enums.UserRole
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
	})

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	Auth(cfg, logg)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if gotUser != userID.String() {
		t.Fatalf("expected user %s got %q", userID, gotUser)
	}
	if gotRole != enums.RoleDriver {
		t.Fatalf("expected driver role got %q", gotRole)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()

	Auth(testJWTConfig(), logg)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsForgedToken(t *testing.T) {
	cfg := testJWTConfig()
	forged := cfg
	forged.Secret = "other-secret"

	token, err := pkgAuth.MintAccessToken(forged, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.RoleConsumer,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	Auth(cfg, logg)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireRoleAllowsListedRoles(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	ran := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/x/assign-driver", nil)
	req = req.WithContext(WithRole(req.Context(), enums.RoleShop))
	resp := httptest.NewRecorder()

	RequireRole(logg, enums.RoleShop, enums.RoleAdmin)(next).ServeHTTP(resp, req)

	if !ran {
		t.Fatal("expected handler to run")
	}
}

func TestRequireRoleBlocksOthers(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders/x/release-escrow", nil)
	req = req.WithContext(WithRole(req.Context(), enums.RoleDriver))
	resp := httptest.NewRecorder()

	RequireRole(logg, enums.RoleAdmin)(next).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
