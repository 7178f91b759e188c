package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestJWTAuth(t *testing.T) {
	t.Parallel()

	valid := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "vetscan",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := valid
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	badSubject := valid
	badSubject.Subject = "alice; drop table"

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusOK},
		{"lowercase scheme", "bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"no scheme", sign(t, jwt.SigningMethodHS256, []byte(testSecret), valid), http.StatusUnauthorized},
		{"wrong key", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other"), valid), http.StatusUnauthorized},
		{"wrong alg", "Bearer " + sign(t, jwt.SigningMethodHS512, []byte(testSecret), valid), http.StatusUnauthorized},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), expired), http.StatusUnauthorized},
		{"issuer", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer), http.StatusUnauthorized},
		{"subject", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte(testSecret), badSubject), http.StatusUnauthorized},
	}

	h := JWTAuth(testSecret, "vetscan")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if OwnerFromContext(r.Context()) != "alice" {
			t.Errorf("owner not propagated")
		}
		w.WriteHeader(http.StatusOK)
	}))
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/analyses", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Fatalf("%s: want %d, got %d (%s)", tc.name, tc.status, rec.Code, rec.Body.String())
		}
	}
}

func TestOwnerFromEmptyContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := OwnerFromContext(req.Context()); got != "" {
		t.Fatalf("expected empty owner, got %q", got)
	}
}
