// Package stepup issues and validates short-lived step-up assertions. A
// successful OTP verification mints one; the transaction gate accepts it as
// proof of verification so the client does not have to race the gate call.
package stepup

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	id "bankguard/pkg/domain"
	"bankguard/internal/otp/models"
	dErrors "bankguard/pkg/domain-errors"
)

const (
	// DefaultTTL bounds the window between verification and the guarded
	// action.
	DefaultTTL = 5 * time.Minute

	issuer = "bankguard"
)

// AssertionClaims are the claims carried by a step-up assertion token.
type AssertionClaims struct {
	UserID  string `json:"user_id"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Service signs and validates assertion tokens with a shared HMAC key.
type Service struct {
	signingKey []byte
	ttl        time.Duration
}

func New(signingKey string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{signingKey: []byte(signingKey), ttl: ttl}
}

// Issue mints a signed assertion for the user and purpose.
func (s *Service) Issue(userID id.UserID, purpose models.Purpose) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims := AssertionClaims{
		UserID:  userID.String(),
		Purpose: string(purpose),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        id.NewEventID().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign step-up assertion: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses an assertion and checks signature, expiry, issuer and that
// it was minted for the expected user and purpose.
func (s *Service) Validate(tokenString string, userID id.UserID, purpose models.Purpose) (*AssertionClaims, error) {
	claims := &AssertionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid step-up assertion")
	}
	if !token.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid step-up assertion")
	}
	if claims.UserID != userID.String() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "step-up assertion issued for a different user")
	}
	if claims.Purpose != string(purpose) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "step-up assertion issued for a different purpose")
	}
	return claims, nil
}
