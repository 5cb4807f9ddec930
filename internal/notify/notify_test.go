package notify_test

import (
	"context"
	"testing"
	"time"

	"social-system/internal/model"
	"social-system/internal/notify"
	"social-system/internal/repository"
	"social-system/internal/testutil"
	"social-system/pkg/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventRendersTemplate(t *testing.T) {
	related := uint(9)
	e := notify.NewEvent(model.NotifyFriendRequest, 2, 1, &related, "alice")

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "alice te envió una solicitud de amistad", e.Message)
	assert.Equal(t, &related, e.RelatedID)

	e = notify.NewEvent(model.NotifyCommunityInvite, 2, 1, nil, "bob", "gophers")
	assert.Equal(t, "bob te invitó a unirte a la comunidad gophers", e.Message)
}

func TestStoreSinkPersists(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	sink := notify.NewStoreSink(store.Notifications)

	e := notify.NewEvent(model.NotifyFriendAccepted, 2, 1, nil, "bob")
	sink.Emit(ctx, e)
	sink.Emit(ctx, e) // 重复事件
	sink.Wait()

	list, total, err := store.Notifications.List(ctx, 2, false, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, "bob aceptó tu solicitud de amistad", list[0].Message)
}

func TestQueueSinkAndDispatcher(t *testing.T) {
	ctx := context.Background()
	testutil.NewRedis(t)
	store := repository.NewStore(testutil.NewDB(t))

	const key = "test:notify"
	sink := notify.NewQueueSink(key, nil)
	d := notify.NewDispatcher(store.Notifications, key, 1)

	// 计数已初始化时新通知会递增
	require.NoError(t, redis.SetUnreadCount(2, 0))

	sink.Emit(ctx, notify.NewEvent(model.NotifyFriendRequest, 2, 1, nil, "alice"))
	sink.Emit(ctx, notify.NewEvent(model.NotifyFriendRequest, 2, 3, nil, "carol"))

	n, err := redis.NotificationQueueLength(key)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	require.NoError(t, d.Drain(ctx))

	count, err := store.Notifications.CountUnread(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	cached, err := redis.GetUnreadCount(2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, cached)
}

func TestDispatcherStartStop(t *testing.T) {
	ctx := context.Background()
	testutil.NewRedis(t)
	store := repository.NewStore(testutil.NewDB(t))

	const key = "test:notify"
	d := notify.NewDispatcher(store.Notifications, key, 2)
	d.Start(ctx)

	notify.NewQueueSink(key, nil).Emit(ctx, notify.NewEvent(model.NotifyFriendRequest, 5, 1, nil, "alice"))

	assert.Eventually(t, func() bool {
		count, err := store.Notifications.CountUnread(ctx, 5)
		return err == nil && count == 1
	}, 3*time.Second, 20*time.Millisecond)

	d.Stop()
}

func TestQueueSinkFallsBackWithoutRedis(t *testing.T) {
	ctx := context.Background()
	redis.SetClient(nil)
	store := repository.NewStore(testutil.NewDB(t))

	fallback := notify.NewStoreSink(store.Notifications)
	notify.NewQueueSink("test:notify", fallback).Emit(ctx, notify.NewEvent(model.NotifyFriendRequest, 2, 1, nil, "alice"))
	fallback.Wait()

	count, err := store.Notifications.CountUnread(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestJanitorPurgesOldReadNotifications(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))

	old := &model.Notification{EventID: "old", RecipientID: 1, SenderID: 2, Type: model.NotifyFriendRequest}
	fresh := &model.Notification{EventID: "fresh", RecipientID: 1, SenderID: 2, Type: model.NotifyFriendRequest}
	unread := &model.Notification{EventID: "unread", RecipientID: 1, SenderID: 2, Type: model.NotifyFriendRequest}
	for _, n := range []*model.Notification{old, fresh, unread} {
		_, err := store.Notifications.CreateIfAbsent(ctx, n)
		require.NoError(t, err)
	}

	longAgo := time.Now().UTC().Add(-31 * 24 * time.Hour)
	require.NoError(t, store.DB().Model(old).Updates(map[string]interface{}{"is_read": true, "read_at": longAgo}).Error)
	_, err := store.Notifications.MarkRead(ctx, fresh.ID, 1)
	require.NoError(t, err)

	j := notify.NewJanitor(store.Notifications, 30*24*time.Hour, time.Hour)
	n, err := j.PurgeOnce(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, total, err := store.Notifications.List(ctx, 1, false, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}
