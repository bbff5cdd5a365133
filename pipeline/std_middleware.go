package pipeline

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-fitness-client/internal/metrics"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	RequestIDHeader = "X-Request-ID"
	tracerName      = "github.com/jrsteele09/go-fitness-client/pipeline"
)

// Logging logs every non-2xx response and every transport failure. Nothing is altered.
func Logging(logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)
			elapsed := time.Since(start)

			switch {
			case err != nil:
				logger.Error().Err(err).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Dur("elapsed", elapsed).
					Msg("API request error, no response received")
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				logger.Error().
					Int("status", resp.StatusCode).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", r.Header.Get(RequestIDHeader)).
					Dur("elapsed", elapsed).
					Msg("API response error")
			default:
				logger.Debug().
					Int("status", resp.StatusCode).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Dur("elapsed", elapsed).
					Msg("API response")
			}
			return resp, err
		})
	}
}

// RequestID stamps each request with a fresh X-Request-ID unless one is set.
func RequestID() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get(RequestIDHeader) != "" {
				return next.RoundTrip(r)
			}
			stamped := r.Clone(r.Context())
			stamped.Header.Set(RequestIDHeader, uuid.New().String())
			return next.RoundTrip(stamped)
		})
	}
}

// Tracing wraps each request in a client span.
func Tracing(tp trace.TracerProvider) Middleware {
	tracer := tp.Tracer(tracerName)
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			ctx, span := tracer.Start(r.Context(), "HTTP "+r.Method,
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", r.Method),
					attribute.String("url.path", r.URL.Path),
					attribute.String("server.address", r.URL.Host),
				),
			)
			defer span.End()

			resp, err := next.RoundTrip(r.WithContext(ctx))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return resp, err
			}
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode >= 400 {
				span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
			}
			return resp, nil
		})
	}
}

// Metrics counts responses by status class.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if err != nil {
				m.ObserveResponse(0)
				return resp, err
			}
			m.ObserveResponse(resp.StatusCode)
			return resp, nil
		})
	}
}
