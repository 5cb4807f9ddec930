package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"social-system/internal/model"
	"social-system/internal/service"
	"social-system/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFriendRequestAcceptIsSymmetric(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	fs := service.NewFriendshipService(e.deps)

	req, err := fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, req.Status)

	st, err := fs.GetFriendshipStatus(ctx, u["alice"], u["bob"])
	require.NoError(t, err)
	assert.Equal(t, service.FriendshipPending, st.Status)
	assert.True(t, st.IsSender)
	assert.Equal(t, req.ID, st.FriendshipID)

	st, err = fs.GetFriendshipStatus(ctx, u["bob"], u["alice"])
	require.NoError(t, err)
	assert.False(t, st.IsSender)

	_, err = fs.AcceptFriendRequest(ctx, req.ID, u["bob"])
	require.NoError(t, err)

	for _, pair := range [][2]uint{{u["alice"], u["bob"]}, {u["bob"], u["alice"]}} {
		st, err := fs.GetFriendshipStatus(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, service.FriendshipFriends, st.Status)
		assert.False(t, st.CanSendRequest)
	}

	sent := e.sink.ofType(model.NotifyFriendRequest)
	require.Len(t, sent, 1)
	assert.Equal(t, u["bob"], sent[0].RecipientID)
	assert.Equal(t, "alice te envió una solicitud de amistad", sent[0].Message)

	accepted := e.sink.ofType(model.NotifyFriendAccepted)
	require.Len(t, accepted, 1)
	assert.Equal(t, u["alice"], accepted[0].RecipientID)
}

func TestRemoveFriendAllowsNewRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	fs := service.NewFriendshipService(e.deps)
	e.befriend(t, u["alice"], u["bob"])

	require.NoError(t, fs.RemoveFriend(ctx, u["bob"], u["alice"]))

	for _, pair := range [][2]uint{{u["alice"], u["bob"]}, {u["bob"], u["alice"]}} {
		st, err := fs.GetFriendshipStatus(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, service.FriendshipNone, st.Status)
		assert.True(t, st.CanSendRequest)
	}

	err := fs.RemoveFriend(ctx, u["alice"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotFriends))

	_, err = fs.SendFriendRequest(ctx, u["bob"], u["alice"])
	assert.NoError(t, err)
}

func TestSendFriendRequestGuards(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol", "dave")
	fs := service.NewFriendshipService(e.deps)
	us := service.NewUserService(e.deps, nil)

	_, err := fs.SendFriendRequest(ctx, u["alice"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrSelfRequest))

	_, err = fs.SendFriendRequest(ctx, u["alice"], 9999)
	assert.True(t, errors.Is(err, apperr.ErrUserNotFound))

	_, err = fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	require.NoError(t, err)
	_, err = fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrDuplicatePending))
	_, err = fs.SendFriendRequest(ctx, u["bob"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrDuplicatePending), "pending in the other direction")

	e.befriend(t, u["alice"], u["carol"])
	_, err = fs.SendFriendRequest(ctx, u["carol"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyFriends))

	require.NoError(t, us.BlockUser(ctx, u["dave"], u["alice"]))
	_, err = fs.SendFriendRequest(ctx, u["alice"], u["dave"])
	assert.True(t, errors.Is(err, apperr.ErrBlocked))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAcceptAndRejectGuards(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol")
	fs := service.NewFriendshipService(e.deps)

	_, err := fs.AcceptFriendRequest(ctx, 12345, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrRequestNotFound))

	req, err := fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	require.NoError(t, err)

	_, err = fs.AcceptFriendRequest(ctx, req.ID, u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrNotAuthorized), "requester cannot accept")
	err = fs.RejectFriendRequest(ctx, req.ID, u["carol"])
	assert.True(t, errors.Is(err, apperr.ErrNotAuthorized))

	_, err = fs.AcceptFriendRequest(ctx, req.ID, u["bob"])
	require.NoError(t, err)
	_, err = fs.AcceptFriendRequest(ctx, req.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyProcessed))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
	err = fs.RejectFriendRequest(ctx, req.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyProcessed))
}

func TestRejectDeletesRequestWithoutNotification(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	fs := service.NewFriendshipService(e.deps)

	req, err := fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	require.NoError(t, err)
	require.NoError(t, fs.RejectFriendRequest(ctx, req.ID, u["bob"]))

	_, err = e.store.Requests.GetByID(ctx, req.ID)
	assert.True(t, errors.Is(err, apperr.ErrRequestNotFound))
	assert.Empty(t, e.sink.ofType(model.NotifyFriendAccepted))

	// 拒绝后可以立即重新申请
	_, err = fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	assert.NoError(t, err)
}

func TestCancelFriendRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	fs := service.NewFriendshipService(e.deps)

	req, err := fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	require.NoError(t, err)

	err = fs.CancelFriendRequest(ctx, req.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotAuthorized))

	require.NoError(t, fs.CancelFriendRequest(ctx, req.ID, u["alice"]))
	sent, err := fs.ListSentRequests(ctx, u["alice"])
	require.NoError(t, err)
	assert.Empty(t, sent)
}

func TestConcurrentAcceptOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	fs := service.NewFriendshipService(e.deps)

	req, err := fs.SendFriendRequest(ctx, u["alice"], u["bob"])
	require.NoError(t, err)

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fs.AcceptFriendRequest(ctx, req.ID, u["bob"])
		}(i)
	}
	wg.Wait()

	var ok, processed int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrAlreadyProcessed):
			processed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, processed)
	assert.Len(t, e.sink.ofType(model.NotifyFriendAccepted), 1)
}

func TestFriendListsAndMutualFriends(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol", "dave", "erin")
	fs := service.NewFriendshipService(e.deps)

	e.befriend(t, u["alice"], u["carol"])
	e.befriend(t, u["bob"], u["carol"])
	e.befriend(t, u["alice"], u["dave"])
	_, err := fs.SendFriendRequest(ctx, u["erin"], u["alice"])
	require.NoError(t, err)

	page, err := fs.ListFriends(ctx, u["alice"], 1, 1)
	require.NoError(t, err)
	assert.Len(t, page.Friends, 1)
	assert.EqualValues(t, 2, page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasMore)

	_, err = fs.ListFriends(ctx, u["alice"], 1, 0)
	assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))

	incoming, err := fs.ListIncomingRequests(ctx, u["alice"])
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "erin", incoming[0].User.Username)

	mutual, err := fs.GetMutualFriends(ctx, u["alice"], u["bob"])
	require.NoError(t, err)
	require.Len(t, mutual, 1)
	assert.Equal(t, u["carol"], mutual[0].ID)
}
