package model

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the payload of both token families. Access tokens carry
// Email and Roles; refresh tokens carry only the subject and type.
type TokenClaims struct {
	Type  TokenType `json:"type"`
	Email string    `json:"email,omitempty"`
	Roles []Role    `json:"roles,omitempty"`
	jwt.RegisteredClaims
}
