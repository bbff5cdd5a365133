// Package authclient performs the stateless network exchanges against the
// authentication endpoints. It does no input validation and keeps nothing between
// calls; the only state it touches is the token store, and only on logout.
package authclient

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/jrsteele09/go-fitness-client/credentials"
	"github.com/jrsteele09/go-fitness-client/tokenstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	RegisterPath = "/auth/register"
	LoginPath    = "/auth/login"
	LogoutPath   = "/auth/logout"
	MePath       = "/auth/me"

	defaultLogoutRetries = 2
	defaultLogoutBackoff = 200 * time.Millisecond
)

// UserProfile identifies the logged in user.
type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Result is a successful login or registration.
type Result struct {
	User  UserProfile
	Token string
}

// authResponse is the {token, ...userFields} body of a successful exchange.
type authResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// API is the JSON transport the client sends through. *pipeline.Client satisfies it.
type API interface {
	DoWithHeaders(ctx context.Context, method, path string, headers http.Header, body, out any) error
}

// Client is the AuthClient.
type Client struct {
	api           API
	store         tokenstore.Store
	logger        zerolog.Logger
	remoteLogout  bool
	logoutRetries uint64
	logoutBackoff time.Duration
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRemoteLogout enables or disables the server-side invalidation call on logout.
func WithRemoteLogout(enabled bool) Option {
	return func(c *Client) { c.remoteLogout = enabled }
}

// WithLogoutRetry sets how often a failed remote invalidation is retried and the
// initial backoff between attempts.
func WithLogoutRetry(retries uint64, backoff time.Duration) Option {
	return func(c *Client) {
		c.logoutRetries = retries
		c.logoutBackoff = backoff
	}
}

// New creates a new Client.
func New(api API, store tokenstore.Store, options ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("[authclient.New] api is required")
	}
	if store == nil {
		return nil, errors.New("[authclient.New] token store is required")
	}
	c := &Client{
		api:           api,
		store:         store,
		logger:        log.Logger,
		remoteLogout:  true,
		logoutRetries: defaultLogoutRetries,
		logoutBackoff: defaultLogoutBackoff,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Register calls POST /auth/register.
func (c *Client) Register(ctx context.Context, data credentials.RegistrationData) (*Result, error) {
	var out authResponse
	if err := c.api.DoWithHeaders(ctx, http.MethodPost, RegisterPath, nil, data, &out); err != nil {
		return nil, err
	}
	return result(out, data.Email)
}

// Login calls POST /auth/login.
func (c *Client) Login(ctx context.Context, creds credentials.Credentials) (*Result, error) {
	var out authResponse
	if err := c.api.DoWithHeaders(ctx, http.MethodPost, LoginPath, nil, creds, &out); err != nil {
		return nil, err
	}
	return result(out, creds.Email)
}

// Me calls GET /auth/me with the stored token.
func (c *Client) Me(ctx context.Context) (*UserProfile, error) {
	var out UserProfile
	if err := c.api.DoWithHeaders(ctx, http.MethodGet, MePath, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout ends the local session: the stored token is cleared first and whatever
// happens afterwards the caller ends up logged out. The server is then asked to
// invalidate the old token; failures there are retried, logged and swallowed.
// Logout never returns an error and never panics.
func (c *Client) Logout(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("Recovered from panic during logout")
		}
	}()

	// The local clear must land even when ctx is already cancelled.
	local := context.WithoutCancel(ctx)
	token, ok, err := c.store.Token(local)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error reading token during logout")
	}
	if err := c.store.ClearToken(local); err != nil {
		c.logger.Error().Err(err).Msg("Error clearing token during logout")
	}

	if !ok || !c.remoteLogout {
		return
	}
	if err := c.invalidate(ctx, token); err != nil {
		c.logger.Warn().Err(err).Msg("Remote logout failed, local session ended")
	}
}

func (c *Client) invalidate(ctx context.Context, token string) error {
	headers := http.Header{"Authorization": []string{"Bearer " + token}}
	backoff := retry.WithMaxRetries(c.logoutRetries, retry.NewExponential(c.logoutBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.api.DoWithHeaders(ctx, http.MethodPost, LogoutPath, headers, nil, nil)
		if retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// retryable reports whether a remote logout failure is worth another attempt.
func retryable(err error) bool {
	switch apierrors.KindOf(err) {
	case apierrors.KindNetwork:
		return true
	case apierrors.KindServer:
		var serverErr *apierrors.ServerError
		return errors.As(err, &serverErr) && serverErr.Status >= http.StatusInternalServerError
	}
	return false
}

func result(out authResponse, requestEmail string) (*Result, error) {
	if out.Token == "" {
		return nil, &apierrors.ServerError{Message: "response missing token"}
	}
	email := out.Email
	if email == "" {
		email = requestEmail
	}
	return &Result{
		User:  UserProfile{Username: out.Username, Email: email},
		Token: out.Token,
	}, nil
}
