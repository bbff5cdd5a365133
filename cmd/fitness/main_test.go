package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-fitness-client/fitness"
	"github.com/jrsteele09/go-fitness-client/internal/fakeserver"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	server    *fakeserver.Server
	tokenFile string
}

func setupCLI(t *testing.T) *cliFixture {
	t.Helper()
	for _, v := range []string{"FITNESS_TOKEN_KEY", "FITNESS_PASSWORD", "FITNESS_VERIFY_ON_STARTUP", "FITNESS_TOKEN_STORE"} {
		t.Setenv(v, "")
	}
	srv := fakeserver.New(t)
	srv.AddUser("a", "a@b.com", "abcdef")
	return &cliFixture{server: srv, tokenFile: filepath.Join(t.TempDir(), "session.json")}
}

// exec runs one CLI invocation, the equivalent of a fresh process.
func (f *cliFixture) exec(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--quiet", "--base-url", f.server.URL, "--store", "file", "--token-file", f.tokenFile}, args...))
	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCLI_SessionAcrossInvocations(t *testing.T) {
	f := setupCLI(t)

	out, _, err := f.exec(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in")

	out, _, err = f.exec(t, "login", "--email", "a@b.com", "--password", "abcdef")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as a (a@b.com)")

	info, err := os.Stat(f.tokenFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, _, err = f.exec(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as a")

	_, _, err = f.exec(t, "login", "--email", "a@b.com", "--password", "abcdef")
	require.ErrorContains(t, err, "already logged in")

	out, _, err = f.exec(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")

	out, _, err = f.exec(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "Not logged in")
}

func TestCLI_Goals(t *testing.T) {
	f := setupCLI(t)
	_, _, err := f.exec(t, "login", "--email", "a@b.com", "--password", "abcdef")
	require.NoError(t, err)

	out, _, err := f.exec(t, "goals")
	require.NoError(t, err)
	require.Contains(t, out, "No goals yet")

	out, _, err = f.exec(t, "goals", "create", "--name", "Run 100km", "--target", "100", "--start", "2026-01-01", "--end", "2026-03-31",
		"--description", "Build up slowly over the winter months and finish strong")
	require.NoError(t, err)
	require.Contains(t, out, "Created goal 1: Run 100km")

	out, _, err = f.exec(t, "goals", "update", "--id", "1", "--name", "Run 120km", "--target", "120")
	require.NoError(t, err)
	require.Contains(t, out, "Updated goal 1: Run 120km")

	out, _, err = f.exec(t, "goals", "list")
	require.NoError(t, err)
	require.Contains(t, out, "Run 120km")
	require.Contains(t, out, "120")

	_, _, err = f.exec(t, "goals", "create", "--name", "x", "--start", "2026-02-01", "--end", "2026-01-01")
	require.ErrorContains(t, err, "--end must not be before --start")
}

func TestCLI_DashboardAndProfile(t *testing.T) {
	f := setupCLI(t)
	f.server.SetStats("a@b.com", fitness.DashboardStats{TotalWorkouts: 7, TotalCaloriesBurned: 2100, AverageWorkoutTime: 30, BestWorkoutTime: 55})
	_, _, err := f.exec(t, "login", "--email", "a@b.com", "--password", "abcdef")
	require.NoError(t, err)

	out, _, err := f.exec(t, "dashboard")
	require.NoError(t, err)
	require.Contains(t, out, "Total workouts:        7")
	require.Contains(t, out, "Best workout time:     55 min")

	out, _, err = f.exec(t, "profile")
	require.NoError(t, err)
	require.Contains(t, out, "Username: A")
}

func TestCLI_Failures(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		f := setupCLI(t)
		_, _, err := f.exec(t, "login", "--email", "nope", "--password", "abc")
		require.EqualError(t, err, "Validation error during login: Invalid email address, Password must be at least 6 characters")
		require.Empty(t, f.server.Calls())
	})

	t.Run("duplicate registration", func(t *testing.T) {
		f := setupCLI(t)
		_, _, err := f.exec(t, "register", "--email", "a@b.com", "--password", "abcdef")
		require.ErrorContains(t, err, "Registration failed")
		require.ErrorContains(t, err, "Email already registered")
	})

	t.Run("revoked token ends the session", func(t *testing.T) {
		f := setupCLI(t)
		_, _, err := f.exec(t, "login", "--email", "a@b.com", "--password", "abcdef")
		require.NoError(t, err)
		f.server.ForceStatus("GET", "/goals", 401)

		_, stderr, err := f.exec(t, "goals")
		require.ErrorContains(t, err, "Loading goals failed")
		require.Contains(t, stderr, "Run `fitness login`")

		out, _, err := f.exec(t, "status")
		require.NoError(t, err)
		require.Contains(t, out, "Not logged in")
	})

	t.Run("unknown store", func(t *testing.T) {
		f := setupCLI(t)
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs([]string{"--quiet", "--base-url", f.server.URL, "--store", "s3", "status"})
		require.Error(t, root.Execute())
	})
}

func TestCLI_PrintMetrics(t *testing.T) {
	f := setupCLI(t)
	out, _, err := f.exec(t, "--print-metrics", "login", "--email", "a@b.com", "--password", "abcdef")
	require.NoError(t, err)
	require.Contains(t, out, `fitness_client_auth_attempts_total{op="login",outcome="success"} 1`)
	require.Contains(t, out, `fitness_client_responses_total{class="2xx"} 1`)
}
