// Package auth issues and checks canvas access tokens. A canvas is created
// with a random access key; exchanging that key yields a short-lived JWT
// whose subject is the canvas id.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidKey   = errors.New("invalid access key")
	ErrInvalidToken = errors.New("invalid token")
)

const (
	keyCost  = 12
	tokenTTL = 24 * time.Hour
)

type Service struct {
	jwtSecret []byte
	now       func() time.Time
}

func NewService(jwtSecret string) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// NewAccessKey returns a fresh key and its bcrypt hash. Only the hash is
// stored.
func (s *Service) NewAccessKey() (key, hash string, err error) {
	key = uuid.NewString()
	h, err := bcrypt.GenerateFromPassword([]byte(key), keyCost)
	if err != nil {
		return "", "", fmt.Errorf("hash access key: %w", err)
	}
	return key, string(h), nil
}

func (s *Service) CheckKey(hash, key string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		return ErrInvalidKey
	}
	return nil
}

func (s *Service) IssueToken(canvasID string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub": canvasID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ValidateToken returns the canvas id the token grants access to.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	canvasID, ok := claims["sub"].(string)
	if !ok || canvasID == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return canvasID, nil
}
