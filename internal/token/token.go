package token

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Verification failures are distinguishable for callers that care; the
// HTTP layer collapses all of them into a single 401.
var (
	ErrMalformed    = errors.New("token: malformed")
	ErrBadSignature = errors.New("token: signature invalid")
	ErrExpired      = errors.New("token: expired")
	ErrNoSubject    = errors.New("token: missing subject")
)

// Claims defines the JWT payload: the subject user id plus the
// registered expiry/issue timestamps.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwtlib.RegisteredClaims
}

// Manager issues and verifies signed identity tokens. The signing secret
// and TTL are fixed at construction; now is swappable for expiry tests.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewManager returns a Manager signing HS256 tokens with the given
// secret and lifetime.
func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the manager's clock. Test helper.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue produces a signed token binding userID with expiry now+TTL.
func (m *Manager) Issue(userID int64) (string, error) {
	now := m.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "tidylist",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(m.ttl)),
		},
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return tok.SignedString(m.secret)
}

// Verify checks signature and expiry and returns the subject user id.
// Failures map to one of ErrMalformed, ErrBadSignature, ErrExpired or
// ErrNoSubject; Verify never panics on arbitrary input.
func (m *Manager) Verify(token string) (int64, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithTimeFunc(m.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return 0, ErrExpired
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return 0, ErrBadSignature
		default:
			return 0, ErrMalformed
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return 0, ErrMalformed
	}
	if claims.UserID <= 0 {
		return 0, ErrNoSubject
	}
	return claims.UserID, nil
}
