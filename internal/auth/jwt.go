package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fixtrack/internal/config"
	"fixtrack/internal/models"
	"fixtrack/internal/timeutil"
)

// Claims carry the same identity fields the client persists
type Claims struct {
	PrincipalID string `json:"principalId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns PrincipalID as the numeric user id
func (c *Claims) UserID() int {
	id, _ := strconv.Atoi(c.PrincipalID)
	return id
}

type JWTManager struct {
	cfg *config.Config
	now func() time.Time
}

func NewJWTManager(cfg *config.Config) *JWTManager {
	return &JWTManager{cfg: cfg, now: timeutil.Now}
}

// GenerateToken creates a new JWT token for a user
func (j *JWTManager) GenerateToken(user *models.User) (string, error) {
	now := j.now()
	expirationTime := now.Add(j.cfg.TokenTTL())

	claims := &Claims{
		PrincipalID: strconv.Itoa(user.ID),
		DisplayName: user.Name,
		Role:        user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.cfg.JWT.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.cfg.JWT.Secret))
}

// ValidateToken verifies a JWT token and returns the claims
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(j.cfg.JWT.Secret), nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(j.cfg.JWT.Issuer),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
