package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/jrsteele09/go-fitness-client/authclient"
	"github.com/jrsteele09/go-fitness-client/credentials"
	"github.com/jrsteele09/go-fitness-client/internal/metrics"
	"github.com/jrsteele09/go-fitness-client/tokenstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	opLogin    = "login"
	opRegister = "register"
)

// AuthClient performs the network exchanges. *authclient.Client satisfies it.
type AuthClient interface {
	Login(ctx context.Context, creds credentials.Credentials) (*authclient.Result, error)
	Register(ctx context.Context, data credentials.RegistrationData) (*authclient.Result, error)
	Logout(ctx context.Context)
}

// Validator checks input shape before any exchange. *credentials.Validator satisfies it.
type Validator interface {
	ValidateLogin(creds credentials.Credentials) error
	ValidateRegistration(data credentials.RegistrationData) error
}

// Verifier confirms a restored token with the server and returns its profile.
type Verifier func(ctx context.Context) (*authclient.UserProfile, error)

// Controller is the authentication state machine.
//
// Mutations are serialised by mu. Every explicit logout advances epoch and cancels the
// in-flight exchange, so an exchange that completes under an older epoch is dropped.
// opSem keeps a new exchange from starting while a logout is still clearing the store.
type Controller struct {
	store     tokenstore.Store
	client    AuthClient
	validator Validator
	verifier  Verifier
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	opSem chan struct{}

	mu       sync.Mutex
	state    Session
	epoch    uint64
	cancel   context.CancelFunc
	snapshot atomic.Pointer[Session]

	publishMu sync.Mutex
	subsMu    sync.Mutex
	subs      map[int]func(Session)
	nextSub   int
}

// Option defines a function type to modify the Controller instance.
type Option func(*Controller)

// WithValidator replaces the default credentials validator.
func WithValidator(v Validator) Option {
	return func(c *Controller) { c.validator = v }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithMetrics records authentication attempts.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithStartupVerifier makes Restore confirm the stored token before declaring the
// session authenticated.
func WithStartupVerifier(v Verifier) Option {
	return func(c *Controller) { c.verifier = v }
}

// NewController creates a Controller in the Unauthenticated state. Call Restore to
// pick up a token persisted by an earlier run.
func NewController(store tokenstore.Store, client AuthClient, options ...Option) (*Controller, error) {
	if store == nil {
		return nil, errors.New("[session.NewController] token store is required")
	}
	if client == nil {
		return nil, errors.New("[session.NewController] auth client is required")
	}
	c := &Controller{
		store:     store,
		client:    client,
		validator: credentials.NewValidator(),
		logger:    log.Logger,
		opSem:     make(chan struct{}, 1),
		subs:      make(map[int]func(Session)),
	}
	for _, opt := range options {
		opt(c)
	}
	c.snapshot.Store(&Session{Status: Unauthenticated})
	return c, nil
}

// Session returns the current snapshot. It never blocks on an in-flight exchange and
// is safe to call from a subscriber.
func (c *Controller) Session() Session {
	return *c.snapshot.Load()
}

// Subscribe registers fn to receive every state change in order. Subscribers must not
// call Login, Register, Logout or Restore synchronously, nor send requests through the
// pipeline.
func (c *Controller) Subscribe(fn func(Session)) (unsubscribe func()) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		delete(c.subs, id)
	}
}

// Login validates creds and, if they pass, exchanges them for a session.
func (c *Controller) Login(ctx context.Context, creds credentials.Credentials) (Session, error) {
	return c.authenticate(ctx, opLogin,
		func() error { return c.validator.ValidateLogin(creds) },
		func(ctx context.Context) (*authclient.Result, error) { return c.client.Login(ctx, creds) },
	)
}

// Register validates data and, if it passes, creates the account and its session.
func (c *Controller) Register(ctx context.Context, data credentials.RegistrationData) (Session, error) {
	return c.authenticate(ctx, opRegister,
		func() error { return c.validator.ValidateRegistration(data) },
		func(ctx context.Context) (*authclient.Result, error) { return c.client.Register(ctx, data) },
	)
}

func (c *Controller) authenticate(
	ctx context.Context,
	op string,
	validate func() error,
	exchange func(context.Context) (*authclient.Result, error),
) (Session, error) {
	select {
	case c.opSem <- struct{}{}:
	case <-ctx.Done():
		return c.Session(), ctx.Err()
	}

	c.mu.Lock()
	switch c.state.Status {
	case Authenticating:
		c.mu.Unlock()
		<-c.opSem
		c.metrics.ObserveAuthAttempt(op, metrics.OutcomeRejected)
		return c.Session(), ErrAuthInProgress
	case Authenticated:
		c.mu.Unlock()
		<-c.opSem
		c.metrics.ObserveAuthAttempt(op, metrics.OutcomeRejected)
		return c.Session(), ErrAlreadyAuthenticated
	}

	if err := validate(); err != nil {
		failed := Session{Status: Failed, Err: err}
		publish := c.commitLocked(failed)
		c.mu.Unlock()
		<-c.opSem
		publish()
		c.metrics.ObserveAuthAttempt(op, metrics.OutcomeValidation)
		return failed, err
	}

	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	epoch := c.epoch
	publish := c.commitLocked(Session{Status: Authenticating})
	c.mu.Unlock()
	<-c.opSem
	publish()

	res, err := exchange(attemptCtx)

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		c.logger.Info().Str("op", op).Msg("Discarding authentication result after logout")
		c.metrics.ObserveAuthAttempt(op, metrics.OutcomeSuperseded)
		return c.Session(), ErrSuperseded
	}
	c.cancel = nil

	if err == nil {
		if setErr := c.store.SetToken(ctx, res.Token); setErr != nil {
			err = errors.Wrap(setErr, "[Controller.authenticate] persisting token")
		}
	}
	if err != nil {
		failed := Session{Status: Failed, Err: err}
		publish := c.commitLocked(failed)
		c.mu.Unlock()
		publish()
		c.logger.Warn().Err(err).Str("op", op).Msg("Authentication failed")
		c.metrics.ObserveAuthAttempt(op, outcome(err))
		return failed, err
	}

	user := res.User
	authenticated := Session{Status: Authenticated, User: &user, Token: res.Token}
	publish = c.commitLocked(authenticated)
	c.mu.Unlock()
	publish()
	c.logger.Info().Str("op", op).Str("username", user.Username).Msg("Authenticated")
	c.metrics.ObserveAuthAttempt(op, metrics.OutcomeSuccess)
	return authenticated, nil
}

// Logout ends the session locally whatever the network does. Any exchange still in
// flight is cancelled and its result discarded.
func (c *Controller) Logout(ctx context.Context) {
	c.opSem <- struct{}{}
	defer func() { <-c.opSem }()

	c.mu.Lock()
	c.epoch++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	publish := func() {}
	if c.state.Status != Unauthenticated {
		publish = c.commitLocked(Session{Status: Unauthenticated})
	}
	c.mu.Unlock()
	publish()

	c.client.Logout(ctx)
	c.logger.Info().Msg("Logged out")
}

// ForceReset drops an authenticated session after the server rejected its token.
// The store is cleared under the state lock, so a login that committed after the
// rejected request went out cannot leave its token behind an Unauthenticated session.
// In any other state only the store is cleared: an exchange that caused the rejection
// resolves to Failed on its own.
func (c *Controller) ForceReset(ctx context.Context) {
	c.mu.Lock()
	if err := c.store.ClearToken(context.WithoutCancel(ctx)); err != nil {
		c.logger.Error().Err(err).Msg("Error clearing token during session reset")
	}
	if c.state.Status != Authenticated {
		c.mu.Unlock()
		return
	}
	publish := c.commitLocked(Session{Status: Unauthenticated})
	c.mu.Unlock()
	publish()
	c.logger.Warn().Msg("Session reset by authorization failure")
}

// Restore picks up a token persisted by an earlier run. Without a verifier the
// session becomes Authenticated from the token alone, using the profile in its claims.
// With one, the token is checked first: a rejected token leaves the session
// Unauthenticated, while an unreachable server falls back to the local profile.
func (c *Controller) Restore(ctx context.Context) (Session, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	token, ok, err := c.store.Token(ctx)
	if err != nil {
		return c.Session(), errors.Wrap(err, "[Controller.Restore] reading token")
	}
	if !ok {
		return c.Session(), nil
	}

	user := ProfileFromToken(token)
	if c.verifier != nil {
		verified, err := c.verifier(ctx)
		switch {
		case err == nil:
			user = *verified
		case apierrors.KindOf(err) == apierrors.KindAuthorization:
			c.logger.Info().Msg("Stored token rejected by server")
			return c.Session(), nil
		default:
			c.logger.Warn().Err(err).Msg("Could not verify stored token, using local profile")
		}
	}

	c.mu.Lock()
	if c.epoch != epoch || c.state.Status != Unauthenticated {
		c.mu.Unlock()
		return c.Session(), nil
	}
	// The verifier may have triggered a reset that cleared the store.
	if current, ok, err := c.store.Token(ctx); err != nil || !ok || current != token {
		c.mu.Unlock()
		return c.Session(), nil
	}
	restored := Session{Status: Authenticated, User: &user, Token: token}
	publish := c.commitLocked(restored)
	c.mu.Unlock()
	publish()
	c.logger.Info().Str("username", user.Username).Msg("Session restored")
	return restored, nil
}

// commitLocked replaces the state and returns the function that notifies subscribers.
// c.mu must be held. publishMu is taken here, before c.mu is released, so
// notifications go out in commit order.
func (c *Controller) commitLocked(s Session) func() {
	c.state = s
	c.snapshot.Store(&s)
	c.publishMu.Lock()
	return func() {
		defer c.publishMu.Unlock()
		c.notify(s)
	}
}

func (c *Controller) notify(s Session) {
	c.subsMu.Lock()
	subs := make([]func(Session), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error().Interface("panic", r).Msg("Recovered from panic in session subscriber")
				}
			}()
			fn(s)
		}()
	}
}

func outcome(err error) string {
	switch apierrors.KindOf(err) {
	case apierrors.KindValidation:
		return metrics.OutcomeValidation
	case apierrors.KindNetwork:
		return metrics.OutcomeNetwork
	}
	return metrics.OutcomeServer
}
