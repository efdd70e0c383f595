package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"ivr-gateway/internal/config"
)

var issuedAt = time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)

func newTestManager(t *testing.T, secret string) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:       secret,
		JWTIssuer:       "ivr-gateway",
		JWTAudience:     "operators",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestVerifyUsesInjectedClock(t *testing.T) {
	m := newTestManager(t, "secret")
	pair, err := m.IssuePair(issuedAt, "op-1", "operator")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !pair.AccessExpiresAt.Equal(issuedAt.Add(15 * time.Minute)) {
		t.Fatalf("unexpected expiry %v", pair.AccessExpiresAt)
	}

	// issuedAt is long past on the wall clock; validity must follow the given time.
	claims, err := m.Verify(pair.AccessToken, TokenTypeAccess, issuedAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if op := claims.Operator(); op.ID != "op-1" || op.Role != "operator" {
		t.Fatalf("unexpected operator: %+v", op)
	}

	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, issuedAt.Add(time.Hour)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	// Within clock skew of expiry still passes.
	if _, err := m.Verify(pair.AccessToken, TokenTypeAccess, issuedAt.Add(15*time.Minute+10*time.Second)); err != nil {
		t.Fatalf("expected leeway to apply: %v", err)
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m := newTestManager(t, "secret")
	pair, _ := m.IssuePair(issuedAt, "op-1", "admin")
	if _, err := m.Verify(pair.RefreshToken, TokenTypeAccess, issuedAt); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected token_type mismatch, got %v", err)
	}
	if _, err := m.Verify(pair.RefreshToken, TokenTypeRefresh, issuedAt); err != nil {
		t.Fatalf("refresh token should verify as refresh: %v", err)
	}
}

func TestVerifyRejectsForeignIssuerAudienceAndSecret(t *testing.T) {
	m := newTestManager(t, "secret")

	foreign, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "someone-else", JWTAudience: "operators", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, _ := foreign.IssuePair(issuedAt, "op-1", "admin")
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, issuedAt); err == nil {
		t.Fatalf("expected issuer mismatch")
	}

	otherAud, _ := NewManager(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "ivr-gateway", JWTAudience: "billing", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	p, _ = otherAud.IssuePair(issuedAt, "op-1", "admin")
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, issuedAt); err == nil {
		t.Fatalf("expected audience mismatch")
	}

	p, _ = newTestManager(t, "other-secret").IssuePair(issuedAt, "op-1", "admin")
	if _, err := m.Verify(p.AccessToken, TokenTypeAccess, issuedAt); err == nil {
		t.Fatalf("expected signature error")
	}
}

func TestIssuePairRequiresOperator(t *testing.T) {
	m := newTestManager(t, "secret")
	if _, err := m.IssuePair(issuedAt, " ", "operator"); err == nil {
		t.Fatalf("expected error for empty operator id")
	}
	if _, err := m.IssuePair(issuedAt, "op-1", ""); err == nil {
		t.Fatalf("expected error for empty role")
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager(config.AuthConfig{}); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestRequireOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager(t, "secret").WithClock(func() time.Time { return issuedAt.Add(time.Minute) })
	pair, _ := m.IssuePair(issuedAt, "op-1", "admin")

	r := gin.New()
	r.GET("/x", RequireOperator(m), func(c *gin.Context) {
		op, ok := OperatorFrom(c.Request.Context())
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, op.ID+":"+op.Role)
	})

	serve := func(header string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		r.ServeHTTP(w, req)
		return w
	}

	if w := serve("Bearer " + pair.AccessToken); w.Code != http.StatusOK || w.Body.String() != "op-1:admin" {
		t.Fatalf("expected operator in context, got %d %q", w.Code, w.Body.String())
	}
	if w := serve("bearer " + pair.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("scheme should be case-insensitive, got %d", w.Code)
	}
	if w := serve(""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}
	if w := serve("Bearer " + pair.RefreshToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token, got %d", w.Code)
	}
}

func TestOperatorFromEmptyContext(t *testing.T) {
	if _, ok := OperatorFrom(WithOperator(t.Context(), Operator{Role: "admin"})); ok {
		t.Fatalf("operator without id must not count")
	}
}
