// Package auth verifies and issues bearer credentials and hashes
// account passwords.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"fintrack/internal/apperr"
	"fintrack/internal/models"
)

// Claims is the JWT payload carried by every issued credential.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HMAC-signed bearer tokens. It is a
// pure function of (credential, current time, signing key) and holds no
// per-request state.
type TokenCodec struct {
	signingKey []byte
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenCodec constructs a codec with the given signing key and token
// lifetime.
func NewTokenCodec(signingKey []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{signingKey: signingKey, ttl: ttl, now: time.Now}
}

// Issue signs a credential for the user and returns the compact token
// together with its session id (jti) and expiry.
func (c *TokenCodec) Issue(user models.User) (token string, session models.Session, err error) {
	now := c.now().UTC()
	session = models.Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(c.ttl),
		CreatedAt: now,
	}
	claims := Claims{
		Role: string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        session.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.signingKey)
	if err != nil {
		return "", models.Session{}, err
	}
	return token, session, nil
}

// Verify validates the credential's signature and expiry and returns
// the acting principal plus the session id for revocation checks.
// Missing, malformed, or expired credentials fail with Unauthenticated.
func (c *TokenCodec) Verify(credential string) (models.Principal, string, error) {
	if credential == "" {
		return models.Principal{}, "", apperr.Unauthenticated("missing credential")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(credential, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, apperr.Unauthenticated("unexpected signing method")
			}
			return c.signingKey, nil
		},
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !token.Valid {
		return models.Principal{}, "", apperr.Unauthenticated("invalid or expired credential")
	}

	role := models.Role(claims.Role)
	if claims.Subject == "" || !role.Valid() {
		return models.Principal{}, "", apperr.Unauthenticated("malformed claims")
	}
	return models.Principal{ID: claims.Subject, Role: role}, claims.ID, nil
}
