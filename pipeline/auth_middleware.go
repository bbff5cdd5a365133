package pipeline

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/jrsteele09/go-fitness-client/tokenstore"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// BearerToken reads the store for every request and, when a token exists, attaches it
// as "Authorization: Bearer <token>". A request that already carries an Authorization
// header is left alone. Without a token, or when the store cannot be read, the request
// goes out unauthenticated.
func BearerToken(store tokenstore.Store, logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if r.Header.Get("Authorization") != "" {
				return next.RoundTrip(r)
			}

			token, ok, err := store.Token(r.Context())
			if err != nil {
				logger.Error().Err(err).Msg("Error retrieving token from store")
				return next.RoundTrip(r)
			}
			if !ok {
				return next.RoundTrip(r)
			}

			// A RoundTripper must not modify the caller's request
			authed := r.Clone(r.Context())
			(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}).SetAuthHeader(authed)
			return next.RoundTrip(authed)
		})
	}
}

// AuthorizationFailure handles 401 and 403 responses from any endpoint: it clears the
// stored token, forces the session reset, then navigates to LoginPath. The response is
// returned to the caller unchanged once those side effects have completed.
// Transport failures and other statuses pass straight through.
func AuthorizationFailure(store tokenstore.Store, resetter Resetter, navigator Navigator, logger zerolog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(r)
			if err != nil || resp == nil || !apierrors.IsAuthorizationStatus(resp.StatusCode) {
				return resp, err
			}

			ctx := r.Context()
			logger.Warn().
				Int("status", resp.StatusCode).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("Authorization failed, resetting session")

			if err := store.ClearToken(context.WithoutCancel(ctx)); err != nil {
				logger.Error().Err(err).Msg("Error clearing token after authorization failure")
			}
			if resetter != nil {
				resetter.ForceReset(ctx)
			}
			if navigator != nil {
				navigator.Navigate(ctx, LoginPath)
			}
			return resp, nil
		})
	}
}
