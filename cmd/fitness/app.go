package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jrsteele09/go-fitness-client/authclient"
	"github.com/jrsteele09/go-fitness-client/fitness"
	"github.com/jrsteele09/go-fitness-client/internal/config"
	"github.com/jrsteele09/go-fitness-client/internal/metrics"
	"github.com/jrsteele09/go-fitness-client/pipeline"
	"github.com/jrsteele09/go-fitness-client/session"
	"github.com/jrsteele09/go-fitness-client/tokenstore"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// appSettings is the configuration after flags have been applied.
type appSettings struct {
	config.Config
	baseURL   string
	store     config.StoreKind
	tokenFile string
	verify    bool
	banner    bool
}

// app is the wired client: one store, one pipeline, one session controller.
type app struct {
	logger   zerolog.Logger
	registry *prometheus.Registry
	store    tokenstore.Store
	session  *session.Controller
	auth     *authclient.Client
	fitness  *fitness.Client
	closers  []io.Closer
}

func newApp(ctx context.Context, s appSettings, stderr io.Writer) (*app, error) {
	level, err := zerolog.ParseLevel(s.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: !stderrIsTerminal()}).
		Level(level).With().Timestamp().Str("app", s.GetAppName()).Logger()

	if s.banner {
		displayAppname(s.GetAppName())
	}

	a := &app{logger: logger, registry: prometheus.NewRegistry()}

	a.store, err = a.newStore(s)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	if err := m.Register(a.registry); err != nil {
		return nil, errors.Wrap(err, "[newApp] registering metrics")
	}

	navigator := pipeline.NavigatorFunc(func(context.Context, string) {
		fmt.Fprintln(stderr, "Your session has ended. Run `fitness login` to sign in again.")
	})
	p, err := pipeline.New(a.store,
		pipeline.WithLogger(logger),
		pipeline.WithNavigator(navigator),
		pipeline.WithMetrics(m),
	)
	if err != nil {
		return nil, err
	}
	api := pipeline.NewClient(s.baseURL, p, pipeline.WithTimeout(s.GetHTTPTimeout()))

	a.auth, err = authclient.New(api, a.store,
		authclient.WithLogger(logger),
		authclient.WithRemoteLogout(s.GetRemoteLogout()),
	)
	if err != nil {
		return nil, err
	}

	options := []session.Option{session.WithLogger(logger), session.WithMetrics(m)}
	if s.verify {
		options = append(options, session.WithStartupVerifier(a.auth.Me))
	}
	a.session, err = session.NewController(a.store, a.auth, options...)
	if err != nil {
		return nil, err
	}
	p.OnForcedReset(a.session)
	a.fitness = fitness.New(api)

	if _, err := a.session.Restore(ctx); err != nil {
		logger.Warn().Err(err).Msg("Could not restore session")
	}
	return a, nil
}

func (a *app) newStore(s appSettings) (tokenstore.Store, error) {
	switch s.store {
	case config.StoreMemory:
		return tokenstore.NewInMemoryStore(), nil
	case config.StoreFile:
		key, err := s.GetTokenKey()
		if err != nil {
			return nil, err
		}
		var options []tokenstore.FileStoreOption
		if key != nil {
			options = append(options, tokenstore.WithEncryptionKey(*key))
		}
		return tokenstore.NewFileStore(s.tokenFile, options...)
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{Addr: s.GetRedisAddr()})
		a.closers = append(a.closers, rdb)
		return tokenstore.NewRedisStore(rdb, s.GetRedisPrefix(), s.GetRedisTTL())
	}
	return nil, errors.Errorf("[newApp] unknown token store %q", s.store)
}

// Close releases the store's connections.
func (a *app) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
