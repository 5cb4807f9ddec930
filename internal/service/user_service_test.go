package service_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"social-system/config"
	"social-system/internal/model"
	"social-system/internal/service"
	"social-system/internal/testutil"
	"social-system/pkg/apperr"
	"social-system/pkg/jwt"
	"social-system/pkg/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	jwtSvc := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", Issuer: "test", ExpireTime: time.Hour})
	us := service.NewUserService(e.deps, jwtSvc)

	u, token, err := us.Register(ctx, " alice ", "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEqual(t, "s3cret", u.PasswordHash)

	claims, err := jwtSvc.ValidateToken(token)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, "alice", claims.Username)

	_, _, err = us.Register(ctx, "alice", "other@example.com", "x")
	assert.True(t, errors.Is(err, apperr.ErrUserExists))
	_, _, err = us.Register(ctx, "", "", "x")
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	_, _, err = us.Login(ctx, "alice@example.com", "s3cret")
	assert.NoError(t, err)
	_, _, err = us.Login(ctx, "alice", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrInvalidCredentials))
	_, _, err = us.Login(ctx, "nobody", "s3cret")
	assert.True(t, errors.Is(err, apperr.ErrInvalidCredentials))
}

func TestProfile(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol")
	us := service.NewUserService(e.deps, nil)
	ps := service.NewPostService(e.deps)

	e.befriend(t, u["alice"], u["bob"])
	post(t, ps, u["alice"], "hola", nil)

	bio := "gopher"
	_, err := us.UpdateProfile(ctx, u["alice"], service.UpdateProfileInput{Bio: &bio})
	require.NoError(t, err)

	p, err := us.GetProfile(ctx, u["bob"], u["alice"])
	require.NoError(t, err)
	assert.Equal(t, "gopher", p.Bio)
	assert.EqualValues(t, 1, p.PostCount)
	assert.EqualValues(t, 1, p.FriendCount)
	assert.Equal(t, service.FriendshipFriends, p.Relationship.Status)
	assert.False(t, p.IsSelf)

	p, err = us.GetProfile(ctx, u["carol"], u["alice"])
	require.NoError(t, err)
	assert.Equal(t, service.FriendshipNone, p.Relationship.Status)
	assert.True(t, p.Relationship.CanSendRequest)

	taken := "bob"
	_, err = us.UpdateProfile(ctx, u["alice"], service.UpdateProfileInput{Username: &taken})
	assert.True(t, errors.Is(err, apperr.ErrUserExists))
}

func TestBlockUser(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	us := service.NewUserService(e.deps, nil)
	fs := service.NewFriendshipService(e.deps)

	err := us.BlockUser(ctx, u["alice"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrSelfBlock))
	assert.Equal(t, apperr.KindSelfReferential, apperr.KindOf(err))

	e.befriend(t, u["alice"], u["bob"])
	require.NoError(t, us.BlockUser(ctx, u["alice"], u["bob"]))

	err = us.BlockUser(ctx, u["alice"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyBlocked))

	// 拉黑同时解除好友关系
	friends, err := e.store.Requests.FriendIDs(ctx, u["alice"])
	require.NoError(t, err)
	assert.Empty(t, friends)

	_, err = us.GetProfile(ctx, u["bob"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrUserNotFound), "blocked users cannot see the profile")

	blocked, err := us.ListBlocked(ctx, u["alice"])
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, u["bob"], blocked[0].ID)

	require.NoError(t, us.UnblockUser(ctx, u["alice"], u["bob"]))
	err = us.UnblockUser(ctx, u["alice"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotBlocked))

	_, err = fs.SendFriendRequest(ctx, u["bob"], u["alice"])
	assert.NoError(t, err)
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	testutil.NewRedis(t)
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	ns := service.NewNotificationService(e.deps)

	for i := 0; i < 3; i++ {
		_, err := e.store.Notifications.CreateIfAbsent(ctx, &model.Notification{
			EventID:     "evt-" + strconv.Itoa(i),
			RecipientID: u["alice"],
			SenderID:    u["bob"],
			Type:        model.NotifyFriendRequest,
			Message:     "bob te envió una solicitud de amistad",
		})
		require.NoError(t, err)
	}

	// 计数缺失时回源数据库并回填
	count, err := ns.UnreadCount(ctx, u["alice"])
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
	cached, err := redis.GetUnreadCount(u["alice"])
	require.NoError(t, err)
	assert.EqualValues(t, 3, cached)

	page, err := ns.ListNotifications(ctx, u["alice"], 1, 10, true)
	require.NoError(t, err)
	require.Len(t, page.Notifications, 3)
	require.NotNil(t, page.Notifications[0].Sender)
	assert.Equal(t, "bob", page.Notifications[0].Sender.Username)

	first := page.Notifications[0].ID
	err = ns.MarkRead(ctx, first, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotificationNotFound))

	require.NoError(t, ns.MarkRead(ctx, first, u["alice"]))
	require.NoError(t, ns.MarkRead(ctx, first, u["alice"]))
	count, err = ns.UnreadCount(ctx, u["alice"])
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	n, err := ns.MarkAllRead(ctx, u["alice"])
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	// 全部已读后清除计数，下次读取回源
	cached, err = redis.GetUnreadCount(u["alice"])
	require.NoError(t, err)
	assert.EqualValues(t, -1, cached)
	count, err = ns.UnreadCount(ctx, u["alice"])
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	page, err = ns.ListNotifications(ctx, u["alice"], 1, 10, true)
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
}
