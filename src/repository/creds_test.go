package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfg "imaginarium/src/configuration"
)

func backends(t *testing.T, maxValueBytes int) map[string]KeyValueStore {
	mr := miniredis.RunT(t)
	redisDB := NewRedisDB(mr.Addr(), "", 0, maxValueBytes)
	t.Cleanup(func() { redisDB.Close() })

	return map[string]KeyValueStore{
		"memory": NewInMemoryDB(maxValueBytes),
		"redis":  redisDB,
	}
}

func TestKeyValueStore(t *testing.T) {
	for name, kv := range backends(t, 16) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, kv.Ping(ctx))

			t.Run("Get missing", func(t *testing.T) {
				_, err := kv.Get(ctx, "missing")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Set and Get", func(t *testing.T) {
				require.NoError(t, kv.Set(ctx, "k", "value", 0))
				value, err := kv.Get(ctx, "k")
				require.NoError(t, err)
				assert.Equal(t, "value", value)
			})

			t.Run("quota", func(t *testing.T) {
				err := kv.Set(ctx, "big", strings.Repeat("x", 17), 0)
				assert.ErrorIs(t, err, ErrQuotaExceeded)
				_, err = kv.Get(ctx, "big")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Take is one-shot", func(t *testing.T) {
				require.NoError(t, kv.Set(ctx, "once", "v", time.Minute))
				value, err := kv.Take(ctx, "once")
				require.NoError(t, err)
				assert.Equal(t, "v", value)
				_, err = kv.Take(ctx, "once")
				assert.ErrorIs(t, err, ErrNotFound)
			})

			t.Run("Delete", func(t *testing.T) {
				require.NoError(t, kv.Set(ctx, "gone", "v", 0))
				require.NoError(t, kv.Delete(ctx, "gone"))
				_, err := kv.Get(ctx, "gone")
				assert.ErrorIs(t, err, ErrNotFound)
			})
		})
	}
}

func TestInMemoryDBExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	db := NewInMemoryDB(0)
	db.now = func() time.Time { return now }

	require.NoError(t, db.Set(ctx, "k", "v", time.Minute))
	_, err := db.Get(ctx, "k")
	require.NoError(t, err)

	now = now.Add(time.Minute)
	_, err = db.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewKeyValueStore(t *testing.T) {
	_, err := NewKeyValueStore(nil)
	assert.Error(t, err)

	kv, err := NewKeyValueStore(&cfg.Properties{})
	require.NoError(t, err)
	assert.IsType(t, &InMemoryDB{}, kv)

	kv, err = NewKeyValueStore(&cfg.Properties{Store: cfg.StoreProperties{Backend: "redis", RedisAddr: "localhost:0"}})
	require.NoError(t, err)
	assert.IsType(t, &RedisDB{}, kv)

	_, err = NewKeyValueStore(&cfg.Properties{Store: cfg.StoreProperties{Backend: "etcd"}})
	assert.Error(t, err)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(NewInMemoryDB(0))

	user := UserRecord{ID: "u1", Email: "Fox@Example.com", Provider: "password"}
	require.NoError(t, users.Create(ctx, user))
	assert.ErrorIs(t, users.Create(ctx, UserRecord{ID: "u2", Email: "fox@example.com"}), ErrUserExists)

	byEmail, err := users.ByEmail(ctx, "fox@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)

	user.EmailVerified = true
	require.NoError(t, users.Save(ctx, user))
	byID, err := users.ByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, byID.EmailVerified)

	_, err = users.ByID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTokenRepository(t *testing.T) {
	ctx := context.Background()
	tokens := NewTokenRepository(NewInMemoryDB(0))

	token, err := tokens.Issue(ctx, PurposeSession, "u1", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := tokens.Lookup(ctx, PurposeSession, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)

	_, err = tokens.Lookup(ctx, PurposeVerify, token)
	assert.ErrorIs(t, err, ErrNotFound, "tokens are scoped by purpose")

	require.NoError(t, tokens.Revoke(ctx, PurposeSession, token))
	_, err = tokens.Lookup(ctx, PurposeSession, token)
	assert.ErrorIs(t, err, ErrNotFound)

	verify, err := tokens.Issue(ctx, PurposeVerify, "u1", time.Hour)
	require.NoError(t, err)
	subject, err = tokens.Consume(ctx, PurposeVerify, verify)
	require.NoError(t, err)
	assert.Equal(t, "u1", subject)
	_, err = tokens.Consume(ctx, PurposeVerify, verify)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = tokens.Lookup(ctx, PurposeSession, "")
	assert.ErrorIs(t, err, ErrNotFound)
}
