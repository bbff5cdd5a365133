package authclient_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-fitness-client/apierrors"
	"github.com/jrsteele09/go-fitness-client/authclient"
	"github.com/jrsteele09/go-fitness-client/credentials"
	"github.com/jrsteele09/go-fitness-client/internal/fakeserver"
	"github.com/jrsteele09/go-fitness-client/pipeline"
	"github.com/jrsteele09/go-fitness-client/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "a"
	testEmail    = "a@b.com"
	testPassword = "abcdef"
)

type testFixture struct {
	server *fakeserver.Server
	store  *tokenstore.InMemoryStore
	client *authclient.Client
}

func setupTestFixture(t *testing.T, baseURL string, options ...authclient.Option) *testFixture {
	t.Helper()

	srv := fakeserver.New(t)
	srv.AddUser(testUsername, testEmail, testPassword)
	if baseURL == "" {
		baseURL = srv.URL
	}

	store := tokenstore.NewInMemoryStore()
	p, err := pipeline.New(store, pipeline.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	options = append([]authclient.Option{
		authclient.WithLogger(zerolog.Nop()),
		authclient.WithLogoutRetry(2, time.Millisecond),
	}, options...)
	ac, err := authclient.New(pipeline.NewClient(baseURL, p), store, options...)
	require.NoError(t, err)

	return &testFixture{server: srv, store: store, client: ac}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := authclient.New(nil, tokenstore.NewInMemoryStore())
	require.Error(t, err)

	_, err = authclient.New(pipeline.NewClient("http://x", http.DefaultTransport), nil)
	require.Error(t, err)
}

func TestClient_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success returns user and token", func(t *testing.T) {
		f := setupTestFixture(t, "")
		res, err := f.client.Login(ctx, credentials.Credentials{Email: testEmail, Password: testPassword})
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)
		require.Equal(t, authclient.UserProfile{Username: testUsername, Email: testEmail}, res.User)
		require.True(t, f.server.TokenValid(res.Token))

		// persistence belongs to the session controller
		_, ok, err := f.store.Token(ctx)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("wrong password is an authorization error", func(t *testing.T) {
		f := setupTestFixture(t, "")
		_, err := f.client.Login(ctx, credentials.Credentials{Email: testEmail, Password: "wrong-password"})
		var authErr *apierrors.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		require.Equal(t, "Invalid credentials", authErr.Message)
	})

	t.Run("server failure", func(t *testing.T) {
		f := setupTestFixture(t, "")
		f.server.ForceStatus(http.MethodPost, authclient.LoginPath, http.StatusServiceUnavailable)
		_, err := f.client.Login(ctx, credentials.Credentials{Email: testEmail, Password: testPassword})
		var serverErr *apierrors.ServerError
		require.ErrorAs(t, err, &serverErr)
		require.Equal(t, http.StatusServiceUnavailable, serverErr.Status)
	})

	t.Run("transport failure", func(t *testing.T) {
		f := setupTestFixture(t, "http://127.0.0.1:1")
		_, err := f.client.Login(ctx, credentials.Credentials{Email: testEmail, Password: testPassword})
		require.Equal(t, apierrors.KindNetwork, apierrors.KindOf(err))
	})

	t.Run("performs no validation", func(t *testing.T) {
		f := setupTestFixture(t, "")
		_, err := f.client.Login(ctx, credentials.Credentials{Email: "bad", Password: "x"})
		require.Error(t, err)
		require.Equal(t, 1, f.server.CallCount(http.MethodPost, authclient.LoginPath))
	})
}

func TestClient_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := setupTestFixture(t, "")
		res, err := f.client.Register(ctx, credentials.RegistrationData{Username: "newbie", Email: "new@b.com", Password: testPassword})
		require.NoError(t, err)
		require.NotEmpty(t, res.Token)
		require.Equal(t, "newbie", res.User.Username)
		require.Equal(t, "new@b.com", res.User.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := setupTestFixture(t, "")
		_, err := f.client.Register(ctx, credentials.RegistrationData{Email: testEmail, Password: testPassword})
		var serverErr *apierrors.ServerError
		require.ErrorAs(t, err, &serverErr)
		require.Equal(t, http.StatusConflict, serverErr.Status)
		require.Equal(t, "Email already registered", serverErr.Message)
	})
}

func TestClient_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears token and invalidates remotely", func(t *testing.T) {
		f := setupTestFixture(t, "")
		token := f.server.IssueToken(testEmail)
		require.NoError(t, f.store.SetToken(ctx, token))

		f.client.Logout(ctx)

		_, ok, err := f.store.Token(ctx)
		require.NoError(t, err)
		require.False(t, ok)
		require.False(t, f.server.TokenValid(token))

		calls := f.server.Calls()
		require.Equal(t, "Bearer "+token, calls[len(calls)-1].Authorization)
	})

	t.Run("remote failure still clears and retries", func(t *testing.T) {
		f := setupTestFixture(t, "")
		f.server.ForceStatus(http.MethodPost, authclient.LogoutPath, http.StatusInternalServerError)
		require.NoError(t, f.store.SetToken(ctx, f.server.IssueToken(testEmail)))

		require.NotPanics(t, func() { f.client.Logout(ctx) })

		_, ok, _ := f.store.Token(ctx)
		require.False(t, ok)
		require.Equal(t, 3, f.server.CallCount(http.MethodPost, authclient.LogoutPath))
	})

	t.Run("unreachable server still clears", func(t *testing.T) {
		f := setupTestFixture(t, "http://127.0.0.1:1")
		require.NoError(t, f.store.SetToken(ctx, "tok1"))

		f.client.Logout(ctx)

		_, ok, _ := f.store.Token(ctx)
		require.False(t, ok)
	})

	t.Run("timed out context still clears", func(t *testing.T) {
		f := setupTestFixture(t, "")
		f.server.Before(http.MethodPost, authclient.LogoutPath, func(r *http.Request) {
			<-r.Context().Done()
		})
		require.NoError(t, f.store.SetToken(ctx, "tok1"))

		tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		f.client.Logout(tctx)

		_, ok, _ := f.store.Token(ctx)
		require.False(t, ok)
	})

	t.Run("cancelled context still clears a redis store", func(t *testing.T) {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		store, err := tokenstore.NewRedisStore(rdb, "test", 0)
		require.NoError(t, err)

		srv := fakeserver.New(t)
		p, err := pipeline.New(store, pipeline.WithLogger(zerolog.Nop()))
		require.NoError(t, err)
		ac, err := authclient.New(pipeline.NewClient(srv.URL, p), store,
			authclient.WithLogger(zerolog.Nop()), authclient.WithLogoutRetry(1, time.Millisecond))
		require.NoError(t, err)
		require.NoError(t, store.SetToken(ctx, "tok1"))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		ac.Logout(cctx)

		_, ok, err := store.Token(ctx)
		require.NoError(t, err)
		require.False(t, ok)
		require.False(t, mr.Exists("test:"+tokenstore.StorageKey))
	})

	t.Run("no token skips the remote call", func(t *testing.T) {
		f := setupTestFixture(t, "")
		f.client.Logout(ctx)
		require.Zero(t, f.server.CallCount(http.MethodPost, authclient.LogoutPath))
	})

	t.Run("remote logout disabled", func(t *testing.T) {
		f := setupTestFixture(t, "", authclient.WithRemoteLogout(false))
		require.NoError(t, f.store.SetToken(ctx, "tok1"))
		f.client.Logout(ctx)
		require.Zero(t, f.server.CallCount(http.MethodPost, authclient.LogoutPath))
	})
}

func TestClient_Me(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t, "")
	require.NoError(t, f.store.SetToken(ctx, f.server.IssueToken(testEmail)))

	me, err := f.client.Me(ctx)
	require.NoError(t, err)
	require.Equal(t, testEmail, me.Email)
}
