package fakeserver

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenExpiry = time.Hour

// tokenCreator signs the bearer tokens handed out on login and registration.
type tokenCreator struct {
	key []byte
	now func() time.Time
}

func newTokenCreator() *tokenCreator {
	return &tokenCreator{key: []byte(uuid.NewString()), now: time.Now}
}

// create signs an HS256 token carrying the profile claims a client can read back.
func (c *tokenCreator) create(u *user) (string, error) {
	claims := jwtlib.MapClaims{
		"sub":      u.Email,
		"email":    u.Email,
		"username": u.Username,
		"iat":      c.now().Unix(),
		"exp":      c.now().Add(tokenExpiry).Unix(),
		"jti":      uuid.New().String(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parse checks the signature and expiry of token and returns its email claim.
func (c *tokenCreator) parse(token string) (string, error) {
	claims := jwtlib.MapClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims, func(*jwtlib.Token) (any, error) {
		return c.key, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithTimeFunc(c.now))
	if err != nil {
		return "", err
	}
	email, _ := claims["email"].(string)
	return email, nil
}
