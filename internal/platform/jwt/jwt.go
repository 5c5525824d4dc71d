package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"typ"`
	jwt.RegisteredClaims
}

// Verification is the outcome of checking a token.
type Verification struct {
	Valid     bool
	Expired   bool
	SubjectID string
	Role      string
}

type Options struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewManager(opts Options) *Manager {
	if opts.Issuer == "" {
		opts.Issuer = "storefinder"
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 3 * time.Hour
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.RefreshSecret == "" {
		opts.RefreshSecret = opts.AccessSecret
	}
	return &Manager{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		issuer:        opts.Issuer,
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		now:           time.Now,
	}
}

func (m *Manager) IssueAccess(userID, role string) (string, error) {
	return m.generate(userID, role, tokenTypeAccess, m.accessSecret, m.accessTTL)
}

func (m *Manager) IssueRefresh(userID string) (string, error) {
	return m.generate(userID, "", tokenTypeRefresh, m.refreshSecret, m.refreshTTL)
}

// Verify checks an access token.
func (m *Manager) Verify(tokenStr string) Verification {
	claims, err := m.parse(tokenStr, tokenTypeAccess, m.accessSecret)
	return toVerification(claims, err)
}

// VerifyRefresh checks a refresh token.
func (m *Manager) VerifyRefresh(tokenStr string) Verification {
	claims, err := m.parse(tokenStr, tokenTypeRefresh, m.refreshSecret)
	return toVerification(claims, err)
}

// ParseRefresh returns the subject of a valid refresh token.
func (m *Manager) ParseRefresh(tokenStr string) (string, error) {
	claims, err := m.parse(tokenStr, tokenTypeRefresh, m.refreshSecret)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (m *Manager) generate(userID, role, typ string, secret []byte, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty subject", ErrTokenInvalid)
	}
	now := m.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *Manager) parse(tokenStr, typ string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithTimeFunc(m.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Type != typ || claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func toVerification(claims *Claims, err error) Verification {
	if err != nil {
		return Verification{Expired: errors.Is(err, ErrTokenExpired)}
	}
	return Verification{Valid: true, SubjectID: claims.UserID, Role: claims.Role}
}
