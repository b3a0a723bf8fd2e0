//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/testhelpers"
)

func TestRedisStore_SetGet(t *testing.T) {
	cfg := testhelpers.GetRedis(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	key := Key("ask", t.Name())
	_, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, key, []byte(`{"answer":"42"}`), time.Minute))

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"answer":"42"}`, string(got))
}

func TestRedisStore_Expires(t *testing.T) {
	cfg := testhelpers.GetRedis(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	key := Key("ask", t.Name())
	require.NoError(t, store.Set(ctx, key, []byte("v"), time.Second))

	require.Eventually(t, func() bool {
		_, ok, err := store.Get(ctx, key)
		return err == nil && !ok
	}, 5*time.Second, 200*time.Millisecond)
}
