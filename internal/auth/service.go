package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for a missing, malformed, expired or
// wrongly signed credential.
var ErrInvalidToken = errors.New("invalid token")

const defaultTTL = 24 * time.Hour

// Verifier checks HMAC-signed JWTs and maps them to a user identity.
type Verifier struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		ttl:    defaultTTL,
		now:    time.Now,
	}
}

// VerifyToken returns the user id carried by token. The id is read from the
// userId claim, falling back to the standard sub claim.
func (v *Verifier) VerifyToken(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithTimeFunc(v.now))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return "", ErrInvalidToken
	}

	if userID, ok := claims["userId"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub, nil
	}
	return "", fmt.Errorf("%w: no subject", ErrInvalidToken)
}

// IssueToken signs a token for userID that VerifyToken accepts.
func (v *Verifier) IssueToken(userID string) (string, error) {
	now := v.now()
	claims := jwt.MapClaims{
		"sub":    userID,
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(v.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}
