// Package auth verifies caller identity at the HTTP boundary. Tokens are
// HMAC-signed JWTs carrying the carrier account id; everything behind the
// middleware only ever sees the extracted identity, never the raw token.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loadpoint/broker-outreach/internal/pkg/httputil"
)

type contextKey string

const carrierIDKey contextKey = "carrier_id"

// Claims is the token payload. CarrierID identifies the carrier account the
// caller operates as.
type Claims struct {
	CarrierID string `json:"carrier_id"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens with a shared HMAC secret. Signature
// verification is mandatory: an unsigned or mis-signed token never passes,
// regardless of its payload.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Middleware authenticates each request and injects the carrier identity
// into the request context. Requests without a valid token get a 401.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			httputil.Unauthorized(w, "missing bearer token")
			return
		}

		carrierID, err := v.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			httputil.Unauthorized(w, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), carrierIDKey, carrierID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Verify checks the token signature and expiry and returns the carrier id.
func (v *Verifier) Verify(token string) (string, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid || claims.CarrierID == "" {
		return "", fmt.Errorf("token missing carrier identity")
	}
	return claims.CarrierID, nil
}

// Sign issues a token for the given carrier id. Used by tests and local
// tooling; production tokens come from the account service.
func (v *Verifier) Sign(carrierID string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		CarrierID: carrierID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.secret)
}

// CarrierID extracts the authenticated carrier id from a request context.
func CarrierID(ctx context.Context) string {
	id, _ := ctx.Value(carrierIDKey).(string)
	return id
}
