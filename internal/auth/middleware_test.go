package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func protected(t *testing.T, v *Verifier) (http.Handler, *string) {
	t.Helper()
	var got string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CarrierID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return h, &got
}

func TestMiddlewareAcceptsSignedToken(t *testing.T) {
	v := NewVerifier("test-secret")
	h, got := protected(t, v)

	token, err := v.Sign("carrier-1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/brokers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if *got != "carrier-1" {
		t.Errorf("carrier id = %q, want carrier-1", *got)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	v := NewVerifier("test-secret")
	h, _ := protected(t, v)

	req := httptest.NewRequest(http.MethodGet, "/brokers", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareRejectsWrongSecret(t *testing.T) {
	other := NewVerifier("other-secret")
	token, _ := other.Sign("carrier-1", time.Hour)

	v := NewVerifier("test-secret")
	h, _ := protected(t, v)

	req := httptest.NewRequest(http.MethodGet, "/brokers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for mis-signed token", rec.Code)
	}
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	v := NewVerifier("test-secret")
	token, _ := v.Sign("carrier-1", -time.Minute)

	h, _ := protected(t, v)
	req := httptest.NewRequest(http.MethodGet, "/brokers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for expired token", rec.Code)
	}
}
