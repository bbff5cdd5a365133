// Package pipeline is the request/response interceptor layer every API call flows
// through. It attaches the current bearer token to outbound requests and resets the
// session when any response comes back 401 or 403.
package pipeline

import (
	"context"
	"net/http"
)

// LoginPath is the login entry point the navigator is sent to on a forced reset.
const LoginPath = "/login"

// Middleware wraps a transport with cross-cutting behaviour.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps base with mw. The first middleware is the outermost: it sees the
// request first and the response last.
func Chain(base http.RoundTripper, mw ...Middleware) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	chained := base
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chained = mw[i](chained)
	}
	return chained
}

// Resetter forces the session back to unauthenticated.
type Resetter interface {
	ForceReset(ctx context.Context)
}

// ResetFunc adapts a function to Resetter.
type ResetFunc func(ctx context.Context)

func (f ResetFunc) ForceReset(ctx context.Context) {
	f(ctx)
}

// Navigator surfaces the navigation side effect of a forced reset.
type Navigator interface {
	Navigate(ctx context.Context, path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, path string)

func (f NavigatorFunc) Navigate(ctx context.Context, path string) {
	f(ctx, path)
}
