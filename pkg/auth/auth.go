package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/focusflowhq/focusflow/pkg/errorsx"
)

const DefaultTokenTTL = 24 * time.Hour

// Claims is the decoded JWT payload. Subject carries the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *Authenticator {
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IssueToken signs an HS256 token for the user and returns it with its unix
// expiry timestamp.
func (a *Authenticator) IssueToken(userID, email string) (string, int64, error) {
	expires := time.Now().Add(a.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", 0, errorsx.Wrap(fmt.Errorf("sign token: %w", err), errorsx.ReasonAuthToken)
	}
	return token, expires.Unix(), nil
}

// ParseToken verifies signature and expiry and returns the claims.
func (a *Authenticator) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, errorsx.Wrap(fmt.Errorf("invalid token: %w", err), errorsx.ReasonAuthToken)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, errorsx.Wrap(fmt.Errorf("invalid token claims"), errorsx.ReasonAuthToken)
	}
	return claims, nil
}
