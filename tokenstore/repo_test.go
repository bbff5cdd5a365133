package tokenstore_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-fitness-client/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) tokenstore.Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T) tokenstore.Store {
			return tokenstore.NewInMemoryStore()
		},
		"file": func(t *testing.T) tokenstore.Store {
			fs, err := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "fitness", "session.json"))
			require.NoError(t, err)
			return fs
		},
		"encrypted file": func(t *testing.T) tokenstore.Store {
			fs, err := tokenstore.NewFileStore(filepath.Join(t.TempDir(), "session.json"),
				tokenstore.WithEncryptionKey(testKey()))
			require.NoError(t, err)
			return fs
		},
		"redis": func(t *testing.T) tokenstore.Store {
			rdb := newRedis(t)
			rs, err := tokenstore.NewRedisStore(rdb, "test", 0)
			require.NoError(t, err)
			return rs
		},
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func testKey() [32]byte {
	var key [32]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)

			tok, ok, err := s.Token(ctx)
			require.NoError(t, err)
			require.False(t, ok)
			require.Empty(t, tok)

			require.NoError(t, s.SetToken(ctx, "tok1"))
			tok, ok, err = s.Token(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "tok1", tok)

			require.NoError(t, s.SetToken(ctx, "tok2"))
			tok, _, err = s.Token(ctx)
			require.NoError(t, err)
			require.Equal(t, "tok2", tok)

			require.NoError(t, s.ClearToken(ctx))
			tok, ok, err = s.Token(ctx)
			require.NoError(t, err)
			require.False(t, ok)
			require.Empty(t, tok)

			// clearing twice is fine
			require.NoError(t, s.ClearToken(ctx))
		})
	}
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			require.ErrorIs(t, s.SetToken(ctx, ""), tokenstore.ErrEmptyToken)
		})
	}
}

func TestStore_ConcurrentWritersNeverTear(t *testing.T) {
	ctx := context.Background()
	for name, newStore := range factories() {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			valid := map[string]bool{}
			for i := 0; i < 8; i++ {
				valid[fmt.Sprintf("token-%d-%s", i, strings.Repeat("x", 64))] = true
			}

			var wg sync.WaitGroup
			for tok := range valid {
				wg.Add(1)
				go func(tok string) {
					defer wg.Done()
					assert.NoError(t, s.SetToken(ctx, tok))
				}(tok)
			}
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					tok, ok, err := s.Token(ctx)
					assert.NoError(t, err)
					if ok {
						assert.True(t, valid[tok], "torn read %q", tok)
					}
				}()
			}
			wg.Wait()

			tok, ok, err := s.Token(ctx)
			require.NoError(t, err)
			require.True(t, ok)
			require.True(t, valid[tok])
		})
	}
}

func TestFileStore_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first, err := tokenstore.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SetToken(ctx, "persisted"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := tokenstore.NewFileStore(path)
	require.NoError(t, err)
	tok, ok, err := second.Token(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "persisted", tok)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"token":"persisted"}`, string(raw))
}

func TestFileStore_Encryption(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	sealed, err := tokenstore.NewFileStore(path, tokenstore.WithEncryptionKey(testKey()))
	require.NoError(t, err)
	require.NoError(t, sealed.SetToken(ctx, "secret-token"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "secret-token")

	t.Run("missing key", func(t *testing.T) {
		plain, err := tokenstore.NewFileStore(path)
		require.NoError(t, err)
		_, _, err = plain.Token(ctx)
		require.ErrorIs(t, err, tokenstore.ErrDecryptFailed)
	})

	t.Run("wrong key", func(t *testing.T) {
		var other [32]byte
		wrong, err := tokenstore.NewFileStore(path, tokenstore.WithEncryptionKey(other))
		require.NoError(t, err)
		_, _, err = wrong.Token(ctx)
		require.ErrorIs(t, err, tokenstore.ErrDecryptFailed)
	})
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	fs, err := tokenstore.NewFileStore(path)
	require.NoError(t, err)
	_, _, err = fs.Token(context.Background())
	require.ErrorIs(t, err, tokenstore.ErrCorruptStore)

	// clearing recovers
	require.NoError(t, fs.ClearToken(context.Background()))
	_, ok, err := fs.Token(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewFileStore_RequiresPath(t *testing.T) {
	_, err := tokenstore.NewFileStore("")
	require.Error(t, err)
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	rs, err := tokenstore.NewRedisStore(rdb, "fit", time.Hour)
	require.NoError(t, err)
	require.NoError(t, rs.SetToken(ctx, "tok1"))

	got, err := mr.Get("fit:token")
	require.NoError(t, err)
	require.Equal(t, "tok1", got)
	require.Equal(t, time.Hour, mr.TTL("fit:token"))

	mr.FastForward(2 * time.Hour)
	_, ok, err := rs.Token(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewRedisStore_RequiresClient(t *testing.T) {
	_, err := tokenstore.NewRedisStore(nil, "x", 0)
	require.Error(t, err)
}
