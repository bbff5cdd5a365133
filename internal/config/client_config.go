package config

import (
	"strings"
	"time"
)

const (
	baseURLVar         = "FITNESS_API_BASE_URL"
	httpTimeoutVar     = "FITNESS_HTTP_TIMEOUT"
	verifyOnStartupVar = "FITNESS_VERIFY_ON_STARTUP"
	remoteLogoutVar    = "FITNESS_REMOTE_LOGOUT"
)

type Client struct{}

var _ ClientConfig = Client{}

// GetBaseURL returns the API root without a trailing slash, e.g. "http://localhost:8080".
func (Client) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

func (Client) GetHTTPTimeout() time.Duration {
	return GetEnvDuration(httpTimeoutVar, 30*time.Second)
}

// GetVerifyOnStartup reports whether a stored token is confirmed with the server
// before the session is restored. Off by default.
func (Client) GetVerifyOnStartup() bool {
	return GetEnvBool(verifyOnStartupVar, false)
}

func (Client) GetRemoteLogout() bool {
	return GetEnvBool(remoteLogoutVar, true)
}
