package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the JWT payload for both token types. The "typ" claim keeps
// access and refresh tokens distinguishable even before the signature check.
type TokenClaims struct {
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Signer signs and verifies claim-bearing tokens for one token type. Two
// instances exist in the application, one per token type, each with its own
// secret, so compromise of one secret cannot forge the other token type.
type Signer interface {
	// Sign issues a token for the subject and returns it with its expiry.
	Sign(userID string) (string, time.Time, error)

	// Verify checks signature, issuer, audience, expiry and token type, and
	// returns the subject user ID.
	Verify(tokenString string) (string, error)

	// TTL returns the lifetime this signer stamps on tokens.
	TTL() time.Duration
}

// HMACSigner is an HS256 Signer. It holds no mutable state and is safe for
// concurrent use.
type HMACSigner struct {
	secret    []byte
	tokenType string
	issuer    string
	audience  string
	ttl       time.Duration
}

// NewHMACSigner creates a Signer for one token type.
func NewHMACSigner(secret, tokenType, issuer, audience string, ttl time.Duration) (*HMACSigner, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("signing secret for %q tokens must be at least 16 characters", tokenType)
	}
	return &HMACSigner{
		secret:    []byte(secret),
		tokenType: tokenType,
		issuer:    issuer,
		audience:  audience,
		ttl:       ttl,
	}, nil
}

// Sign issues a token for the given user.
func (s *HMACSigner) Sign(userID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := TokenClaims{
		TokenType: s.tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign %s token: %w", s.tokenType, err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token string, returning the subject user ID.
// Expired-but-otherwise-valid tokens yield apperrors.ErrTokenExpired; every
// other failure yields apperrors.ErrInvalidToken.
func (s *HMACSigner) Verify(tokenString string) (string, error) {
	claims := &TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Don't forget to validate the alg is what you expect:
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.ErrTokenExpired
		}
		return "", apperrors.ErrInvalidToken
	}

	if !token.Valid || claims.TokenType != s.tokenType || claims.Subject == "" {
		return "", apperrors.ErrInvalidToken
	}

	return claims.Subject, nil
}

// TTL returns the token lifetime for this signer.
func (s *HMACSigner) TTL() time.Duration {
	return s.ttl
}
