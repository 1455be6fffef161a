package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

var (
	// ErrInvalidUserID is returned when issuing tokens without a user identifier.
	ErrInvalidUserID = errors.New("userID is required")
	// ErrInvalidToken is returned when a token fails verification or carries
	// the wrong token_use claim.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// TokenPair bundles a short-lived access token and a longer-lived refresh
// token minted for the same account.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Claims carries the account identity alongside the registered JWT claims.
// The token_use discriminator keeps refresh tokens from authorizing API
// calls and access tokens from minting new pairs.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"uid"`
	TokenUse string `json:"token_use"`
}

// Option configures a TokenManager instance.
type Option func(*TokenManager)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.refreshTTL = ttl
		}
	}
}

// TokenManager signs and verifies HS256 token pairs. There is no server-side
// revocation state; logout relies on clients discarding their tokens and a
// token stays verifiable until its natural expiry.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenManager constructs a TokenManager with the provided signing secret.
// Defaults: 15 minute access tokens, 7 day refresh tokens.
func NewTokenManager(secret []byte, opts ...Option) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, errors.New("token signing secret is required")
	}
	manager := &TokenManager{
		secret:     secret,
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(manager)
		}
	}
	return manager, nil
}

// Issue mints an access/refresh pair scoped to the provided account id.
func (m *TokenManager) Issue(userID string) (TokenPair, error) {
	if userID == "" {
		return TokenPair{}, ErrInvalidUserID
	}
	now := m.now()
	accessExpiry := now.Add(m.accessTTL)
	access, err := m.sign(userID, tokenUseAccess, now, accessExpiry)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(userID, tokenUseRefresh, now, now.Add(m.refreshTTL))
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: accessExpiry}, nil
}

// Verify checks an access token and returns the account id it was issued for.
func (m *TokenManager) Verify(token string) (string, error) {
	return m.verify(token, tokenUseAccess)
}

// VerifyRefresh checks a refresh token and returns the account id it was
// issued for.
func (m *TokenManager) VerifyRefresh(token string) (string, error) {
	return m.verify(token, tokenUseRefresh)
}

func (m *TokenManager) sign(userID, use string, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:   userID,
		TokenUse: use,
	})
	return token.SignedString(m.secret)
}

func (m *TokenManager) verify(tokenString, use string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.TokenUse != use || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}
