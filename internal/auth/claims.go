package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims identify an operator of the read API. Subject carries the operator id.
// Provider webhooks never see these; they are signed by Twilio instead.
type Claims struct {
	jwt.RegisteredClaims

	Role      string    `json:"role,omitempty"`
	TokenType TokenType `json:"token_type"`
}

func (c Claims) Operator() Operator {
	return Operator{ID: c.Subject, Role: c.Role}
}
