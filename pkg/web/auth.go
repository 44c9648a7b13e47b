package web

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userKey = "user_id"

// Authentication errors.
var (
	ErrUnauthenticated = errors.New("web: missing credentials")
	ErrInvalidToken    = errors.New("web: invalid token")
)

// authenticate resolves the caller's user id and stores it in the request
// locals. Websocket clients may pass the token or user id as a query
// parameter since browsers cannot set headers on the upgrade request.
func (s *Server) authenticate(c *fiber.Ctx) error {
	userID, err := s.identify(c)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	c.Locals(userKey, userID)
	return c.Next()
}

func (s *Server) identify(c *fiber.Ctx) (string, error) {
	if s.config.JWTSecret == "" {
		id := c.Get("X-User-ID")
		if id == "" {
			id = c.Query("user_id")
		}
		if id == "" {
			return "", ErrUnauthenticated
		}
		return id, nil
	}

	raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	if !ok || raw == "" {
		raw = c.Query("token")
	}
	if raw == "" {
		return "", ErrUnauthenticated
	}
	return ParseToken(raw, s.config.JWTSecret)
}

// ParseToken verifies an HS256 token and returns its subject.
func ParseToken(raw, secret string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// IssueToken signs an HS256 token for userID valid for ttl.
func IssueToken(secret, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// callerID returns the authenticated caller.
func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(userKey).(string)
	return id
}
