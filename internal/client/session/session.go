// Package session is the client's single source of truth for who is logged
// in. It restores a persisted session on startup, validates the token's
// expiry and gates protected operations until initialization has finished.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fixtrack/internal/models"
)

// StorageKey is the key the session blob is stored under in both scopes
const StorageKey = "userInfo"

var (
	ErrNotReady          = errors.New("session not initialized")
	ErrNoSession         = errors.New("not logged in")
	ErrSessionExpired    = errors.New("session expired, please log in again")
	ErrForbidden         = errors.New("not allowed for your role")
	ErrMalformedSession  = errors.New("malformed session")
	ErrCredentials       = errors.New("username and password are required")
	ErrRegistrationCode  = errors.New("registration code is required")
	errMissingExpiration = errors.New("token has no expiry claim")
)

type Session struct {
	PrincipalID string
	DisplayName string
	Role        string
	Token       string
	// ExpiresAt is the token's exp claim in epoch seconds
	ExpiresAt int64
}

// Expired reports whether the token is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

// Expiry returns ExpiresAt as a time
func (s *Session) Expiry() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// HasRole reports whether the session role is one of roles
func (s *Session) HasRole(roles ...string) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

// stored is the persisted JSON layout
type stored struct {
	Token       string `json:"token"`
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

func encode(s *Session) (string, error) {
	data, err := json.Marshal(stored{
		Token:       s.Token,
		PrincipalID: s.PrincipalID,
		DisplayName: s.DisplayName,
		Role:        s.Role,
	})
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decode parses a persisted blob and the expiry of its token
func decode(raw string) (*Session, error) {
	var st stored
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	return fromPayload(st.Token, st.PrincipalID, st.DisplayName, st.Role)
}

// fromAuth builds a session from a login/register answer
func fromAuth(resp *models.AuthResponse) (*Session, error) {
	return fromPayload(resp.Token, resp.PrincipalID, resp.DisplayName, resp.Role)
}

func fromPayload(token, principalID, displayName, role string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedSession)
	}
	exp, err := TokenExpiry(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSession, err)
	}
	return &Session{
		PrincipalID: principalID,
		DisplayName: displayName,
		Role:        normalizeRole(role),
		Token:       token,
		ExpiresAt:   exp.Unix(),
	}, nil
}

func normalizeRole(role string) string {
	switch role {
	case models.RoleAdmin, models.RoleStaff:
		return role
	default:
		return models.RoleGuest
	}
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The client only needs the expiry; the backend verifies the signature.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errMissingExpiration
	}
	return exp.Time, nil
}
