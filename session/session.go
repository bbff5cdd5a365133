// Package session owns the process-wide authentication state. The Controller is the
// only writer; everything else reads snapshots or subscribes to changes.
package session

import (
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-fitness-client/authclient"
	"github.com/pkg/errors"
)

// Status is the authentication state.
type Status int

const (
	Unauthenticated Status = iota
	Authenticating
	Authenticated
	Failed
)

func (s Status) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrAuthInProgress       = errors.New("authentication already in progress")
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	ErrSuperseded           = errors.New("authentication superseded by logout")
)

// Session is a read-only snapshot of the authentication state. Token and User are
// set only while Status is Authenticated; Err only while Status is Failed.
type Session struct {
	Status Status
	User   *authclient.UserProfile
	Token  string
	Err    error
}

// Loading reports whether an authentication exchange is in flight.
func (s Session) Loading() bool {
	return s.Status == Authenticating
}

// placeholderProfile is used when a restored token carries no usable claims.
var placeholderProfile = authclient.UserProfile{Username: "User", Email: "user@example.com"}

// ProfileFromToken rebuilds a profile from the claims of a stored token without
// verifying its signature. Tokens that are not JWTs get the placeholder profile.
func ProfileFromToken(token string) authclient.UserProfile {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return placeholderProfile
	}

	email, _ := claims["email"].(string)
	if email == "" {
		if sub, err := claims.GetSubject(); err == nil && strings.Contains(sub, "@") {
			email = sub
		}
	}
	username, _ := claims["username"].(string)
	if username == "" && email != "" {
		username, _, _ = strings.Cut(email, "@")
	}
	if username == "" {
		return placeholderProfile
	}
	return authclient.UserProfile{Username: username, Email: email}
}
