// Package auth issues and verifies the JWT session tokens that gate the
// bucket-admin control plane's REST API.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes an access token from a refresh token.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

var (
	ErrInvalidTokenType = errors.New("controlplane/auth: unexpected token type")
	ErrSecretTooShort   = errors.New("controlplane/auth: jwt secret must be at least 32 bytes")
)

// Claims is the JWT payload issued for the single control-plane admin
// principal. There is no multi-user model; Subject is always "admin".
type Claims struct {
	jwt.RegisteredClaims
	TokenType TokenType `json:"token_type"`
}

// Config configures a Service.
type Config struct {
	Secret               string
	Issuer               string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

// Service issues and validates admin session tokens.
type Service struct {
	config Config
}

// NewService builds a Service, rejecting secrets shorter than 32 bytes.
func NewService(config Config) (*Service, error) {
	if len(config.Secret) < 32 {
		return nil, ErrSecretTooShort
	}
	if config.AccessTokenDuration <= 0 {
		config.AccessTokenDuration = 15 * time.Minute
	}
	if config.RefreshTokenDuration <= 0 {
		config.RefreshTokenDuration = 24 * time.Hour
	}
	return &Service{config: config}, nil
}

// TokenPair is the response body of a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// IssueTokenPair returns a freshly signed access/refresh token pair for the
// admin principal.
func (s *Service) IssueTokenPair() (*TokenPair, error) {
	now := time.Now()
	access, err := s.sign(TokenTypeAccess, now, s.config.AccessTokenDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(TokenTypeRefresh, now, s.config.RefreshTokenDuration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.config.AccessTokenDuration / time.Second),
	}, nil
}

func (s *Service) sign(tokenType TokenType, issuedAt time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		TokenType: tokenType,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

// ValidateAccessToken parses token and verifies it is an unexpired access token.
func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	return s.validate(token, TokenTypeAccess)
}

// ValidateRefreshToken parses token and verifies it is an unexpired refresh token.
func (s *Service) ValidateRefreshToken(token string) (*Claims, error) {
	return s.validate(token, TokenTypeRefresh)
}

func (s *Service) validate(tokenStr string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims.TokenType != want {
		return nil, ErrInvalidTokenType
	}
	return claims, nil
}
