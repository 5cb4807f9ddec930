package redis

import (
	"context"
	"testing"
	"time"

	"social-system/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

func TestUninitializedClient(t *testing.T) {
	SetClient(nil)

	assert.False(t, Enabled())
	assert.Error(t, HealthCheck())
	assert.Error(t, PushNotificationEvent("q", []byte("x")))
	_, _, err := GetCachedCommunitySummaries([]uint{1})
	assert.Error(t, err)
	_, err = GetUnreadCount(1)
	assert.Error(t, err)
	assert.Error(t, InvalidateCommunity(1))
}

func TestCommunitySummaryCache(t *testing.T) {
	mr := setupMiniredis(t)

	err := CacheCommunitySummaries([]model.CommunitySummary{
		{ID: 1, Name: "golang", IsPrivate: false},
		{ID: 2, Name: "rust", MediaURL: "r.png", IsPrivate: true},
	})
	require.NoError(t, err)

	hits, missing, err := GetCachedCommunitySummaries([]uint{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []uint{3}, missing)
	assert.Equal(t, "golang", hits[1].Name)
	assert.True(t, hits[2].IsPrivate)

	require.NoError(t, InvalidateCommunity(1))
	_, missing, err = GetCachedCommunitySummaries([]uint{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, missing)

	// 过期后回源
	mr.FastForward(CommunityCacheTTL + time.Second)
	_, missing, err = GetCachedCommunitySummaries([]uint{2})
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, missing)
}

func TestNotificationQueueFIFO(t *testing.T) {
	setupMiniredis(t)

	require.NoError(t, PushNotificationEvent("q", []byte("first")))
	require.NoError(t, PushNotificationEvent("q", []byte("second")))

	n, err := NotificationQueueLength("q")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := PopNotificationEvent(context.Background(), "q", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	got, err = PopNotificationEvent(context.Background(), "q", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestUnreadCount(t *testing.T) {
	setupMiniredis(t)

	// 未初始化时返回 -1
	count, err := GetUnreadCount(7)
	require.NoError(t, err)
	assert.EqualValues(t, -1, count)

	// 未初始化的计数不会被 INCR 创建
	require.NoError(t, IncrementUnreadCount(7))
	count, err = GetUnreadCount(7)
	require.NoError(t, err)
	assert.EqualValues(t, -1, count)

	require.NoError(t, SetUnreadCount(7, 2))
	require.NoError(t, IncrementUnreadCount(7))
	count, err = GetUnreadCount(7)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	require.NoError(t, DecrementUnreadCount(7))
	count, err = GetUnreadCount(7)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, ResetUnreadCount(7))
	count, err = GetUnreadCount(7)
	require.NoError(t, err)
	assert.EqualValues(t, -1, count)
}
