package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/pkg/errors"
)

const maxErrorBody = 1 << 20

// Client is a JSON client whose every request goes through the given transport,
// normally a *Pipeline.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// NewClient creates a new Client.
func NewClient(baseURL string, transport http.RoundTripper, opts ...ClientOption) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Do sends body as JSON and decodes a 2xx response into out. Failures come back as
// *apierrors.NetworkError, *apierrors.AuthorizationError or *apierrors.ServerError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	return c.DoWithHeaders(ctx, method, path, nil, body, out)
}

// DoWithHeaders is Do with extra request headers.
func (c *Client) DoWithHeaders(ctx context.Context, method, path string, headers http.Header, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.Do] marshal request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[Client.Do] new request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &apierrors.NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return responseError(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &apierrors.ServerError{Status: resp.StatusCode, Message: "invalid response body: " + err.Error()}
	}
	return nil
}

// responseError turns a non-2xx response into the error taxonomy. The {message} field
// of a JSON body becomes the error message.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	if apierrors.IsAuthorizationStatus(resp.StatusCode) {
		return &apierrors.AuthorizationError{Status: resp.StatusCode, Message: payload.Message, Body: body}
	}
	return &apierrors.ServerError{Status: resp.StatusCode, Message: payload.Message, Body: body}
}
