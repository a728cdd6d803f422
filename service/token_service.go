package service

import (
	"slices"
	"time"

	"go-marketplace-api/config"
	"go-marketplace-api/logger"
	"go-marketplace-api/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenService issues and verifies access and refresh tokens. The two
// families are signed with different secrets.
type TokenService struct {
	cfg    config.JWTConfig
	method jwt.SigningMethod
	now    func() time.Time
}

func NewTokenService(cfg config.JWTConfig) *TokenService {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &TokenService{cfg: cfg, method: method, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// IssueAccessToken signs a token carrying the user's id, email and roles.
func (s *TokenService) IssueAccessToken(user *model.User) (string, time.Time, error) {
	claims := &model.TokenClaims{
		Type:             model.TokenTypeAccess,
		Email:            user.Email,
		Roles:            user.Roles,
		RegisteredClaims: s.registered(user.ID, s.cfg.AccessTTL),
	}
	return s.sign(claims, s.cfg.AccessSecret)
}

// IssueRefreshToken signs a token carrying only the subject.
func (s *TokenService) IssueRefreshToken(user *model.User) (string, time.Time, error) {
	claims := &model.TokenClaims{
		Type:             model.TokenTypeRefresh,
		RegisteredClaims: s.registered(user.ID, s.cfg.RefreshTTL),
	}
	return s.sign(claims, s.cfg.RefreshSecret)
}

func (s *TokenService) VerifyAccessToken(token string) (*model.TokenClaims, error) {
	return s.parse(token, s.cfg.AccessSecret, model.TokenTypeAccess, true)
}

func (s *TokenService) VerifyRefreshToken(token string) (*model.TokenClaims, error) {
	return s.parse(token, s.cfg.RefreshSecret, model.TokenTypeRefresh, true)
}

// DecodeAccessToken checks the signature, issuer, audience and type but
// accepts expired tokens. Only logout uses it.
func (s *TokenService) DecodeAccessToken(token string) (*model.TokenClaims, error) {
	return s.parse(token, s.cfg.AccessSecret, model.TokenTypeAccess, false)
}

func (s *TokenService) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		Audience:  jwt.ClaimStrings{s.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *TokenService) sign(claims *model.TokenClaims, secret string) (string, time.Time, error) {
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString([]byte(secret))
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", claims.Subject).Error("Failed to sign JWT")
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (s *TokenService) parse(token, secret string, want model.TokenType, validateClaims bool) (*model.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if validateClaims {
		opts = append(opts,
			jwt.WithIssuer(s.cfg.Issuer),
			jwt.WithAudience(s.cfg.Audience),
			jwt.WithExpirationRequired(),
		)
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &model.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Type != want || claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenInvalid
	}
	if !validateClaims {
		if claims.Issuer != s.cfg.Issuer || !slices.Contains(claims.Audience, s.cfg.Audience) {
			return nil, ErrTokenInvalid
		}
	}
	return claims, nil
}
