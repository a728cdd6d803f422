// file: model/token.go

package model

import "time"

// RevokedToken is a revocation ledger entry. TokenHash is the SHA-256 fingerprint
// of the token; the raw token is never stored.
type RevokedToken struct {
	ID             int64     `json:"id"`
	TokenHash      string    `json:"-"`
	ExpiresAt      time.Time `json:"expires_at"`
	IsRefreshToken bool      `json:"is_refresh_token"`
	UserID         *string   `json:"user_id,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

const (
	RevocationReasonLogout   = "logout"
	RevocationReasonRotation = "rotation"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken           string      `json:"access_token"`
	AccessTokenExpiresAt  time.Time   `json:"access_token_expires_at"`
	RefreshToken          string      `json:"refresh_token"`
	RefreshTokenExpiresAt time.Time   `json:"refresh_token_expires_at"`
	User                  *PublicUser `json:"user"`
}

// RefreshResult is returned by a successful refresh. RefreshToken is empty when
// rotated tokens are not handed back to the client.
type RefreshResult struct {
	AccessToken           string     `json:"access_token"`
	AccessTokenExpiresAt  time.Time  `json:"access_token_expires_at"`
	RefreshToken          string     `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt *time.Time `json:"refresh_token_expires_at,omitempty"`
}
