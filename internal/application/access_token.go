package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const accessTokenIssuer = "reservation-desk"

// accessTokenClaims are the JWT claims carried by privileged function tokens.
type accessTokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner issues and verifies HMAC-SHA256 access tokens.
type TokenSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenSigner returns a signer using secret. A non-positive ttl defaults to fifteen minutes.
func NewTokenSigner(secret []byte, ttl time.Duration, now func() time.Time) (*TokenSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &TokenSigner{secret: secret, ttl: ttl, now: now}, nil
}

// Sign issues a token for principal.
func (s *TokenSigner) Sign(principal Principal) (AccessToken, error) {
	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.ttl)
	claims := accessTokenClaims{
		Role: string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    accessTokenIssuer,
			Subject:   principal.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign access token: %w", err)
	}
	return AccessToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Verify parses token and returns the principal it was issued to.
func (s *TokenSigner) Verify(token string) (Principal, error) {
	var claims accessTokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(accessTokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Principal{UserID: claims.Subject, Role: Role(claims.Role)}, nil
}
