package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/nandazuhri/lokapasar-backend/pkg/auth"
	"github.com/nandazuhri/lokapasar-backend/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "lokapasar"}

func authedHandler(t *testing.T, want uuid.UUID) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := UserIDFromContext(r.Context())
		if got != want {
			t.Fatalf("expected user %s in context, got %s", want, got)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthAcceptsValidBearerToken(t *testing.T) {
	userID := uuid.New()
	token, err := pkgauth.IssueAccessToken(testJWT, userID, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := Auth(testJWT, nil)(authedHandler(t, userID))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	token, err := pkgauth.IssueAccessToken(config.JWTConfig{Secret: "other-secret", Issuer: "lokapasar"}, uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	token, err := pkgauth.IssueAccessToken(testJWT, uuid.New(), -time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsWrongIssuer(t *testing.T) {
	token, err := pkgauth.IssueAccessToken(config.JWTConfig{Secret: "test-secret", Issuer: "somebody-else"}, uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
