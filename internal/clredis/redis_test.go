package clredis

import (
	"context"
	"testing"
	"time"

	"timetracker/internal/models/clconfig"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, New(client, "captcha", time.Minute)
}

func TestRedisStoreSetGet(t *testing.T) {
	m, store := newTestStore(t)

	require.NoError(t, store.Set("abc", "42"))
	assert.True(t, m.Exists("captcha:abc"))

	assert.Equal(t, "42", store.Get("abc", false))
	assert.Equal(t, "42", store.Get("abc", true))
	assert.Equal(t, "", store.Get("abc", false))
}

func TestRedisStoreVerify(t *testing.T) {
	_, store := newTestStore(t)

	require.NoError(t, store.Set("id1", "7"))
	assert.False(t, store.Verify("id1", "8", false))
	assert.True(t, store.Verify("id1", "7", true))
	// la valeur est consommée
	assert.False(t, store.Verify("id1", "7", true))
	// une réponse vide ne valide jamais une clé absente
	assert.False(t, store.Verify("missing", "", false))
}

func TestRedisStoreExpiration(t *testing.T) {
	m, store := newTestStore(t)

	require.NoError(t, store.Set("ttl", "v"))
	m.FastForward(2 * time.Minute)
	assert.Equal(t, "", store.Get("ttl", false))
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(context.Background(), clconfig.RedisConfig{})
	assert.NoError(t, err)
	assert.Nil(t, client)

	m := miniredis.RunT(t)
	client, err = NewClient(context.Background(), clconfig.RedisConfig{Addr: m.Addr()})
	require.NoError(t, err)
	require.NotNil(t, client)
	client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err = NewClient(ctx, clconfig.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
