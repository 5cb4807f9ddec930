package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"social-system/internal/model"
	"social-system/internal/service"
	"social-system/internal/testutil"
	"social-system/pkg/apperr"
	"social-system/pkg/redis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommunity(t *testing.T, cs *service.CommunityService, owner uint, name string, private bool) *model.Community {
	t.Helper()
	ctx := context.Background()
	c, err := cs.CreateCommunity(ctx, owner, service.CreateCommunityInput{Name: name})
	require.NoError(t, err)
	if private {
		require.NoError(t, cs.SetPrivacy(ctx, c.ID, owner, true))
	}
	return c
}

func TestCreateCommunity(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)

	c, err := cs.CreateCommunity(ctx, u["alice"], service.CreateCommunityInput{Name: "gophers", Hashtags: []string{"go"}})
	require.NoError(t, err)
	assert.False(t, c.IsPrivate)
	assert.Equal(t, model.RoleSuperAdmin, e.role(t, c.ID, u["alice"]))

	_, err = cs.CreateCommunity(ctx, u["bob"], service.CreateCommunityInput{Name: "gophers"})
	assert.True(t, errors.Is(err, apperr.ErrNameTaken))

	view, err := cs.GetCommunity(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	assert.Equal(t, "none", view.UserRole)
	assert.EqualValues(t, 1, view.MemberCount)
	assert.Equal(t, []string{"go"}, view.Hashtags)
}

func TestPrivateCommunityJoinFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "secret", true)

	err := cs.JoinCommunity(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrPrivateCommunity))

	_, err = cs.GetCommunityMembers(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrMembersOnly))

	_, err = cs.RequestJoin(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	_, err = cs.RequestJoin(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyPending))

	pending, err := cs.GetPendingRequests(ctx, c.ID, u["alice"])
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, u["bob"], pending[0].User.ID)

	_, err = cs.GetPendingRequests(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotCommunityAdmin))

	require.NoError(t, cs.AcceptRequest(ctx, c.ID, u["bob"], u["alice"]))

	members, err := cs.GetCommunityMembers(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	require.NotNil(t, members.SuperAdmin)
	assert.Equal(t, u["alice"], members.SuperAdmin.ID)
	require.Len(t, members.Members, 1)
	assert.Equal(t, u["bob"], members.Members[0].ID)

	view, err := cs.GetCommunity(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	assert.Equal(t, "member", view.UserRole)

	joinReq := e.sink.ofType(model.NotifyCommunityJoinRequest)
	require.Len(t, joinReq, 1)
	assert.Equal(t, u["alice"], joinReq[0].RecipientID)
	assert.Equal(t, "bob quiere unirse a tu comunidad secret", joinReq[0].Message)
	require.Len(t, e.sink.ofType(model.NotifyCommunityJoinAccepted), 1)

	// 已处理的申请不能再次处理
	err = cs.AcceptRequest(ctx, c.ID, u["bob"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrRequestNotFound))
}

func TestRejectJoinRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "secret", true)

	_, err := cs.RequestJoin(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	require.NoError(t, cs.RejectRequest(ctx, c.ID, u["bob"], u["alice"]))
	assert.Equal(t, model.RoleNone, e.role(t, c.ID, u["bob"]))

	_, err = cs.RequestJoin(ctx, c.ID, u["bob"])
	assert.NoError(t, err, "rejected users may request again")
}

func TestPublicJoinGuards(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "open", false)

	_, err := cs.RequestJoin(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrPublicCommunity))

	require.NoError(t, cs.JoinCommunity(ctx, c.ID, u["bob"]))
	err = cs.JoinCommunity(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyMember))
	err = cs.JoinCommunity(ctx, c.ID, u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyMember))

	err = cs.JoinCommunity(ctx, 9999, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrCommunityNotFound))
}

func TestPromoteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "open", false)
	require.NoError(t, cs.JoinCommunity(ctx, c.ID, u["bob"]))

	require.NoError(t, cs.PromoteToAdmin(ctx, c.ID, u["bob"], u["alice"]))
	require.NoError(t, cs.PromoteToAdmin(ctx, c.ID, u["bob"], u["alice"]))

	admins, err := e.store.Communities.ListByRole(ctx, c.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, []uint{u["bob"]}, admins)
	members, err := e.store.Communities.ListByRole(ctx, c.ID, model.RoleMember)
	require.NoError(t, err)
	assert.Empty(t, members)

	// 只有所有者能管理管理员层级
	err = cs.DemoteFromAdmin(ctx, c.ID, u["bob"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotSuperAdmin))

	err = cs.PromoteToAdmin(ctx, c.ID, u["carol"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrNotMember))

	err = cs.DemoteFromAdmin(ctx, c.ID, u["alice"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrCannotRemoveSuperAdmin))

	require.NoError(t, cs.DemoteFromAdmin(ctx, c.ID, u["bob"], u["alice"]))
	require.NoError(t, cs.DemoteFromAdmin(ctx, c.ID, u["bob"], u["alice"]))
	assert.Equal(t, model.RoleMember, e.role(t, c.ID, u["bob"]))
}

func TestTransferOwnership(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "open", false)
	require.NoError(t, cs.JoinCommunity(ctx, c.ID, u["bob"]))

	err := cs.TransferOwnership(ctx, c.ID, u["carol"], u["alice"])
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransferTarget))

	err = cs.TransferOwnership(ctx, c.ID, u["alice"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotSuperAdmin))

	require.NoError(t, cs.TransferOwnership(ctx, c.ID, u["bob"], u["alice"]))

	assert.Equal(t, model.RoleAdmin, e.role(t, c.ID, u["alice"]))
	assert.Equal(t, model.RoleSuperAdmin, e.role(t, c.ID, u["bob"]))

	owners, err := e.store.Communities.ListByRole(ctx, c.ID, model.RoleSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, []uint{u["bob"]}, owners)

	got, err := e.store.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, u["bob"], got.SuperAdminID)
}

func TestRemoveMemberAndLeave(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol", "dave")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "open", false)
	for _, name := range []string{"bob", "carol", "dave"} {
		require.NoError(t, cs.JoinCommunity(ctx, c.ID, u[name]))
	}
	require.NoError(t, cs.PromoteToAdmin(ctx, c.ID, u["bob"], u["alice"]))
	require.NoError(t, cs.PromoteToAdmin(ctx, c.ID, u["carol"], u["alice"]))

	err := cs.RemoveMember(ctx, c.ID, u["alice"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrCannotRemoveSuperAdmin))
	err = cs.RemoveMember(ctx, c.ID, u["carol"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotSuperAdmin), "admins cannot remove admins")
	err = cs.RemoveMember(ctx, c.ID, u["bob"], u["dave"])
	assert.True(t, errors.Is(err, apperr.ErrNotCommunityAdmin))

	require.NoError(t, cs.RemoveMember(ctx, c.ID, u["dave"], u["bob"]))
	assert.Equal(t, model.RoleNone, e.role(t, c.ID, u["dave"]))
	require.NoError(t, cs.RemoveMember(ctx, c.ID, u["carol"], u["alice"]))

	res, err := cs.LeaveCommunity(ctx, c.ID, u["alice"])
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.Equal(t, model.RoleSuperAdmin, e.role(t, c.ID, u["alice"]))

	res, err = cs.LeaveCommunity(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	assert.True(t, res.Success)

	_, err = cs.LeaveCommunity(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotMember))
}

func TestLeaveWhilePendingWithdrawsRequest(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "secret", true)

	_, err := cs.RequestJoin(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	res, err := cs.LeaveCommunity(ctx, c.ID, u["bob"])
	require.NoError(t, err)
	assert.True(t, res.Success)

	pending, err := cs.GetPendingRequests(ctx, c.ID, u["alice"])
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSetPrivacyPromotesPending(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "secret", true)

	_, err := cs.RequestJoin(ctx, c.ID, u["bob"])
	require.NoError(t, err)

	err = cs.SetPrivacy(ctx, c.ID, u["bob"], false)
	assert.True(t, errors.Is(err, apperr.ErrNotSuperAdmin))

	require.NoError(t, cs.SetPrivacy(ctx, c.ID, u["alice"], false))
	assert.Equal(t, model.RoleMember, e.role(t, c.ID, u["bob"]))

	pending, err := cs.GetPendingRequests(ctx, c.ID, u["alice"])
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestInviteFlow(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob", "carol")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "secret", true)

	req, err := cs.InviteToCommunity(ctx, c.ID, u["alice"], u["bob"])
	require.NoError(t, err)
	_, err = cs.InviteToCommunity(ctx, c.ID, u["alice"], u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrDuplicatePending))

	_, err = cs.InviteToCommunity(ctx, c.ID, u["bob"], u["carol"])
	assert.True(t, errors.Is(err, apperr.ErrNotCommunityAdmin))

	invites, err := cs.ListInvites(ctx, u["bob"])
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, "secret", invites[0].Metadata["community_name"])

	err = cs.AcceptInvite(ctx, req.ID, u["carol"])
	assert.True(t, errors.Is(err, apperr.ErrNotAuthorized))

	require.NoError(t, cs.AcceptInvite(ctx, req.ID, u["bob"]))
	assert.Equal(t, model.RoleMember, e.role(t, c.ID, u["bob"]))
	err = cs.AcceptInvite(ctx, req.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrAlreadyProcessed))

	invite2, err := cs.InviteToCommunity(ctx, c.ID, u["alice"], u["carol"])
	require.NoError(t, err)
	require.NoError(t, cs.DeclineInvite(ctx, invite2.ID, u["carol"]))
	assert.Equal(t, model.RoleNone, e.role(t, c.ID, u["carol"]))

	sent := e.sink.ofType(model.NotifyCommunityInvite)
	require.Len(t, sent, 2)
	assert.Equal(t, "alice te invitó a unirte a la comunidad secret", sent[0].Message)
}

func TestDeleteCommunityCascades(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	ps := service.NewPostService(e.deps)
	c := newCommunity(t, cs, u["alice"], "open", false)
	require.NoError(t, cs.JoinCommunity(ctx, c.ID, u["bob"]))

	post, err := ps.CreatePost(ctx, u["bob"], service.CreatePostInput{TextBody: "hola", CommunityID: &c.ID})
	require.NoError(t, err)
	own, err := ps.CreatePost(ctx, u["bob"], service.CreatePostInput{TextBody: "mine"})
	require.NoError(t, err)

	err = cs.DeleteCommunity(ctx, c.ID, u["bob"])
	assert.True(t, errors.Is(err, apperr.ErrNotSuperAdmin))

	require.NoError(t, cs.DeleteCommunity(ctx, c.ID, u["alice"]))

	_, err = e.store.Communities.GetByID(ctx, c.ID)
	assert.True(t, errors.Is(err, apperr.ErrCommunityNotFound))
	_, err = e.store.Posts.GetByID(ctx, post.ID)
	assert.True(t, errors.Is(err, apperr.ErrPostNotFound))
	_, err = e.store.Posts.GetByID(ctx, own.ID)
	assert.NoError(t, err)
	assert.Equal(t, model.RoleNone, e.role(t, c.ID, u["bob"]))
}

func TestUpdateCommunityInvalidatesCache(t *testing.T) {
	ctx := context.Background()
	mr := testutil.NewRedis(t)
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	c := newCommunity(t, cs, u["alice"], "open", false)

	require.NoError(t, redis.CacheCommunitySummaries([]model.CommunitySummary{c.Summary()}))
	assert.True(t, mr.Exists(fmt.Sprintf("%s%d", redis.CommunitySummaryKeyPrefix, c.ID)))

	other := newCommunity(t, cs, u["bob"], "taken", false)
	taken := other.Name
	_, err := cs.UpdateCommunity(ctx, c.ID, u["alice"], service.UpdateCommunityInput{Name: &taken})
	assert.True(t, errors.Is(err, apperr.ErrNameTaken))

	name := "renamed"
	tags := []string{"a", "b"}
	updated, err := cs.UpdateCommunity(ctx, c.ID, u["alice"], service.UpdateCommunityInput{Name: &name, Hashtags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
	assert.False(t, mr.Exists(fmt.Sprintf("%s%d", redis.CommunitySummaryKeyPrefix, c.ID)))

	got, err := e.store.Communities.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, tags, got.Hashtags)

	_, err = cs.UpdateCommunity(ctx, c.ID, u["bob"], service.UpdateCommunityInput{Name: &name})
	assert.True(t, errors.Is(err, apperr.ErrNotCommunityAdmin))
}

func TestListCommunities(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	u := e.users(t, "alice", "bob")
	cs := service.NewCommunityService(e.deps)
	golang := newCommunity(t, cs, u["alice"], "golang", false)
	newCommunity(t, cs, u["alice"], "gopher-art", false)
	newCommunity(t, cs, u["alice"], "rustaceans", false)
	require.NoError(t, cs.JoinCommunity(ctx, golang.ID, u["bob"]))

	page, err := cs.ListCommunities(ctx, u["bob"], "go", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Pagination.Total)
	roles := map[string]string{}
	for _, c := range page.Communities {
		roles[c.Name] = c.UserRole
	}
	assert.Equal(t, map[string]string{"golang": "member", "gopher-art": "none"}, roles)

	mine, err := cs.ListUserCommunities(ctx, u["bob"])
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, golang.ID, mine[0].ID)
	assert.EqualValues(t, 2, mine[0].MemberCount)
}
