// Package token issues and validates the signed session tokens handed to
// clients after sign-in.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "givetrack/pkg/domain"
	dErrors "givetrack/pkg/domain-errors"
)

// Claims is the session token body. AuthTime is when the user last proved
// their credentials; refreshes never move it.
type Claims struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	AuthTime  int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

// StateClaims protects the federated sign-in round trip.
type StateClaims struct {
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

type Service struct {
	signingKey []byte
	issuer     string
	sessionTTL time.Duration
	stateTTL   time.Duration
}

const (
	defaultIssuer   = "givetrack"
	sessionAudience = "givetrack-api"
	stateAudience   = "givetrack-oauth-state"
)

func New(signingKey string, sessionTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     defaultIssuer,
		sessionTTL: sessionTTL,
		stateTTL:   10 * time.Minute,
	}
}

func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// IssueSession signs a token for a new session started at now.
func (s *Service) IssueSession(userID id.UserID, sessionID id.SessionID, email string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.sessionTTL)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    userID.String(),
		SessionID: sessionID.String(),
		Email:     email,
		AuthTime:  now.Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{sessionAudience},
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	})
	signed, err := t.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateSession verifies signature, audience and expiry.
func (s *Service) ValidateSession(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := s.parse(tokenString, claims, sessionAudience); err != nil {
		return nil, err
	}
	if _, err := id.ParseUserID(claims.UserID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if _, err := id.ParseSessionID(claims.SessionID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *Service) IssueState(provider string, now time.Time) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.stateTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{stateAudience},
			ID:        uuid.NewString(),
		},
	})
	return t.SignedString(s.signingKey)
}

// ValidateState checks that state was issued by us for provider.
func (s *Service) ValidateState(state, provider string) error {
	claims := &StateClaims{}
	if err := s.parse(state, claims, stateAudience); err != nil {
		return err
	}
	if claims.Provider != provider {
		return dErrors.New(dErrors.CodeUnauthorized, "state does not match provider")
	}
	return nil
}

func (s *Service) parse(tokenString string, claims jwt.Claims, audience string) error {
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return nil
}
