package pipeline

import (
	"context"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-fitness-client/internal/metrics"
	"github.com/jrsteele09/go-fitness-client/tokenstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var _ http.RoundTripper = (*Pipeline)(nil)

// Pipeline is the application's single outbound transport. The order, outermost first:
// request id, tracing, logging, authorization failure handling, metrics, bearer token.
type Pipeline struct {
	store          tokenstore.Store
	base           http.RoundTripper
	navigator      Navigator
	logger         zerolog.Logger
	tracerProvider trace.TracerProvider
	metrics        *metrics.Metrics

	resetLock sync.RWMutex
	resetters []Resetter

	transport http.RoundTripper
}

// Option defines a function type to modify the Pipeline instance.
type Option func(*Pipeline)

// WithBaseTransport sets the transport that performs the actual network exchange.
func WithBaseTransport(base http.RoundTripper) Option {
	return func(p *Pipeline) { p.base = base }
}

// WithNavigator sets where forced resets send the user.
func WithNavigator(n Navigator) Option {
	return func(p *Pipeline) { p.navigator = n }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithTracerProvider sets the tracer provider. The global provider is the default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) { p.tracerProvider = tp }
}

// WithMetrics enables response metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New builds the pipeline around store. Session controllers attach themselves with
// OnForcedReset.
func New(store tokenstore.Store, options ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, errors.New("[pipeline.New] token store is required")
	}
	p := &Pipeline{
		store:          store,
		base:           http.DefaultTransport,
		logger:         log.Logger,
		tracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range options {
		opt(p)
	}

	p.transport = Chain(p.base,
		RequestID(),
		Tracing(p.tracerProvider),
		Logging(p.logger),
		AuthorizationFailure(p.store, p, p.navigator, p.logger),
		Metrics(p.metrics),
		BearerToken(p.store, p.logger),
	)
	return p, nil
}

// RoundTrip sends r through the middleware chain.
func (p *Pipeline) RoundTrip(r *http.Request) (*http.Response, error) {
	return p.transport.RoundTrip(r)
}

// OnForcedReset registers r to be told about every 401/403 response.
func (p *Pipeline) OnForcedReset(r Resetter) {
	p.resetLock.Lock()
	defer p.resetLock.Unlock()
	p.resetters = append(p.resetters, r)
}

// ForceReset fans the reset out to every registered Resetter.
func (p *Pipeline) ForceReset(ctx context.Context) {
	p.metrics.ObserveForcedReset()

	p.resetLock.RLock()
	resetters := make([]Resetter, len(p.resetters))
	copy(resetters, p.resetters)
	p.resetLock.RUnlock()

	for _, r := range resetters {
		r.ForceReset(ctx)
	}
}
