package service

import (
	"context"
	"strings"
	"time"

	"social-system/internal/model"
	"social-system/internal/notify"
	"social-system/internal/repository"
	"social-system/pkg/apperr"
	"social-system/pkg/logger"
	"social-system/pkg/redis"

	"go.uber.org/zap"
)

// CommunityService 社区与成员角色
//
// 角色迁移：
//
//	none -> member                (公开社区直接加入、接受邀请)
//	none -> pending -> member     (私密社区申请)
//	member <-> admin              (所有者提升/降级)
//	member/admin -> superAdmin    (所有权转让，原所有者变为 admin)
//	任意非所有者 -> none           (退出、移除)
type CommunityService struct {
	Deps
}

// NewCommunityService 创建社区服务
func NewCommunityService(d Deps) *CommunityService {
	return &CommunityService{Deps: d}
}

// CreateCommunityInput 创建/更新社区参数
type CreateCommunityInput struct {
	Name        string   `json:"name" binding:"required,max=64"`
	Description string   `json:"description"`
	MediaURL    string   `json:"media_url"`
	Hashtags    []string `json:"hashtags"`
}

// UpdateCommunityInput 更新社区参数，nil 字段保持不变
type UpdateCommunityInput struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	MediaURL    *string   `json:"media_url"`
	Hashtags    *[]string `json:"hashtags"`
}

// CommunityView 社区详情
type CommunityView struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	MediaURL     string    `json:"media_url"`
	IsPrivate    bool      `json:"is_private"`
	Hashtags     []string  `json:"hashtags"`
	SuperAdminID uint      `json:"super_admin_id"`
	MemberCount  int64     `json:"member_count"`
	UserRole     string    `json:"user_role"`
	CreatedAt    time.Time `json:"created_at"`
}

// MembersView 按角色分组的成员列表
type MembersView struct {
	SuperAdmin *model.UserSummary  `json:"super_admin"`
	Admins     []model.UserSummary `json:"admins"`
	Members    []model.UserSummary `json:"members"`
}

// LeaveResult 退出社区的结果，所有者退出是预期内的软失败
type LeaveResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// CommunityPage 社区列表分页
type CommunityPage struct {
	Communities []CommunityView `json:"communities"`
	Pagination  Pagination      `json:"pagination"`
}

// CreateCommunity 创建社区，创建者成为所有者，社区默认公开
func (s *CommunityService) CreateCommunity(ctx context.Context, creatorID uint, in CreateCommunityInput) (*model.Community, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.ErrInvalidArgument.Withf("name is required")
	}

	c := &model.Community{
		Name:         name,
		Description:  in.Description,
		MediaURL:     in.MediaURL,
		Hashtags:     in.Hashtags,
		SuperAdminID: creatorID,
	}
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Users.GetByID(ctx, creatorID); err != nil {
			return err
		}
		taken, err := tx.Communities.NameExists(ctx, name, 0)
		if err != nil {
			return err
		}
		if taken {
			return apperr.ErrNameTaken.Withf("name=%s", name)
		}
		if err := tx.Communities.Create(ctx, c); err != nil {
			if isDuplicate(err) {
				return apperr.ErrNameTaken.Withf("name=%s", name)
			}
			return err
		}
		return tx.Communities.SetRole(ctx, c.ID, creatorID, model.RoleSuperAdmin)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("社区已创建", zap.Uint("community_id", c.ID), zap.Uint("owner", creatorID))
	return c, nil
}

// GetCommunity 社区详情及浏览者角色
func (s *CommunityService) GetCommunity(ctx context.Context, communityID, viewerID uint) (*CommunityView, error) {
	c, err := s.Store.Communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	role, err := s.Store.Communities.GetRole(ctx, communityID, viewerID)
	if err != nil {
		return nil, err
	}
	count, err := s.Store.Communities.CountMembers(ctx, communityID)
	if err != nil {
		return nil, err
	}
	v := communityView(c, count, role)
	return &v, nil
}

func communityView(c *model.Community, members int64, role model.Role) CommunityView {
	hashtags := c.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	return CommunityView{
		ID:           c.ID,
		Name:         c.Name,
		Description:  c.Description,
		MediaURL:     c.MediaURL,
		IsPrivate:    c.IsPrivate,
		Hashtags:     hashtags,
		SuperAdminID: c.SuperAdminID,
		MemberCount:  members,
		UserRole:     role.String(),
		CreatedAt:    c.CreatedAt,
	}
}

// GetCommunityMembers 成员列表，私密社区仅成员可见
func (s *CommunityService) GetCommunityMembers(ctx context.Context, communityID, viewerID uint) (*MembersView, error) {
	c, err := s.Store.Communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if c.IsPrivate {
		role, err := s.Store.Communities.GetRole(ctx, communityID, viewerID)
		if err != nil {
			return nil, err
		}
		if !role.AtLeast(model.RoleMember) {
			return nil, apperr.ErrMembersOnly
		}
	}

	rows, err := s.Store.Communities.ListMembers(ctx, communityID, model.RoleMember)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, m := range rows {
		ids = append(ids, m.UserID)
	}
	users, err := s.Store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &MembersView{Admins: []model.UserSummary{}, Members: []model.UserSummary{}}
	for _, m := range rows {
		u, ok := users[m.UserID]
		if !ok {
			continue
		}
		summary := u.Summary()
		switch m.Role {
		case model.RoleSuperAdmin:
			view.SuperAdmin = &summary
		case model.RoleAdmin:
			view.Admins = append(view.Admins, summary)
		default:
			view.Members = append(view.Members, summary)
		}
	}
	return view, nil
}

// GetPendingRequests 待处理的加入申请，仅管理员可见
func (s *CommunityService) GetPendingRequests(ctx context.Context, communityID, actingUserID uint) ([]RequestView, error) {
	if _, err := s.requireRole(ctx, s.Store, communityID, actingUserID, model.RoleAdmin); err != nil {
		return nil, err
	}
	records, err := s.Store.Requests.ListPendingJoins(ctx, communityID)
	if err != nil {
		return nil, err
	}
	return requestViews(ctx, s.Store, records, requesterOf)
}

// requireRole 校验社区存在且操作者角色不低于 min
func (s *CommunityService) requireRole(ctx context.Context, tx *repository.Store, communityID, userID uint, min model.Role) (*model.Community, error) {
	c, err := tx.Communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, err
	}
	role, err := tx.Communities.GetRole(ctx, communityID, userID)
	if err != nil {
		return nil, err
	}
	if !role.AtLeast(min) {
		if min == model.RoleSuperAdmin {
			return nil, apperr.ErrNotSuperAdmin
		}
		return nil, apperr.ErrNotCommunityAdmin
	}
	return c, nil
}

// JoinCommunity 直接加入公开社区
func (s *CommunityService) JoinCommunity(ctx context.Context, communityID, userID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := tx.Communities.GetByID(ctx, communityID)
		if err != nil {
			return err
		}
		if c.IsPrivate {
			return apperr.ErrPrivateCommunity
		}
		role, err := tx.Communities.GetRole(ctx, communityID, userID)
		if err != nil {
			return err
		}
		if role.AtLeast(model.RoleMember) {
			return apperr.ErrAlreadyMember.Withf("role=%s", role)
		}
		return tx.Communities.SetRole(ctx, communityID, userID, model.RoleMember)
	})
}

// RequestJoin 申请加入私密社区，通知所有者
func (s *CommunityService) RequestJoin(ctx context.Context, communityID, userID uint) (*model.Request, error) {
	var (
		req       *model.Request
		community *model.Community
		requester *model.User
	)
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if community, err = tx.Communities.GetByID(ctx, communityID); err != nil {
			return err
		}
		if !community.IsPrivate {
			return apperr.ErrPublicCommunity
		}
		if requester, err = tx.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		role, err := tx.Communities.GetRole(ctx, communityID, userID)
		if err != nil {
			return err
		}
		switch {
		case role.AtLeast(model.RoleMember):
			return apperr.ErrAlreadyMember.Withf("role=%s", role)
		case role == model.RolePending:
			return apperr.ErrAlreadyPending
		}

		req = &model.Request{
			RequesterID: userID,
			CommunityID: uintPtr(communityID),
			Type:        model.RequestTypeCommunityJoin,
			Status:      model.RequestStatusPending,
			PairKey:     strPtr(model.JoinKey(communityID, userID)),
		}
		if err := tx.Requests.Create(ctx, req); err != nil {
			if isDuplicate(err) {
				return apperr.ErrAlreadyPending
			}
			return err
		}
		return tx.Communities.SetRole(ctx, communityID, userID, model.RolePending)
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, notify.NewEvent(model.NotifyCommunityJoinRequest, community.SuperAdminID, userID, uintPtr(req.ID), requester.Username, community.Name))
	logger.Info("社区加入申请已提交", zap.Uint("community_id", communityID), zap.Uint("user", userID))
	return req, nil
}

// AcceptRequest 管理员接受加入申请：pending -> member
func (s *CommunityService) AcceptRequest(ctx context.Context, communityID, targetUserID, actingUserID uint) error {
	var (
		req       *model.Request
		community *model.Community
		actor     *model.User
	)
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if community, err = s.requireRole(ctx, tx, communityID, actingUserID, model.RoleAdmin); err != nil {
			return err
		}
		if actor, err = tx.Users.GetByID(ctx, actingUserID); err != nil {
			return err
		}
		if req, err = s.pendingJoin(ctx, tx, communityID, targetUserID); err != nil {
			return err
		}
		if err := acceptPending(ctx, tx, req); err != nil {
			return err
		}
		ok, err := tx.Communities.ChangeRole(ctx, communityID, targetUserID, model.RolePending, model.RoleMember)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrAlreadyProcessed.Withf("user=%d", targetUserID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, notify.NewEvent(model.NotifyCommunityJoinAccepted, targetUserID, actingUserID, uintPtr(req.ID), actor.Username, community.Name))
	logger.Info("社区加入申请已接受", zap.Uint("community_id", communityID), zap.Uint("user", targetUserID), zap.Uint("by", actingUserID))
	return nil
}

// RejectRequest 管理员拒绝加入申请：删除申请并移除 pending 角色
func (s *CommunityService) RejectRequest(ctx context.Context, communityID, targetUserID, actingUserID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := s.requireRole(ctx, tx, communityID, actingUserID, model.RoleAdmin); err != nil {
			return err
		}
		req, err := s.pendingJoin(ctx, tx, communityID, targetUserID)
		if err != nil {
			return err
		}
		if err := deletePending(ctx, tx, req); err != nil {
			return err
		}
		return s.clearPendingRole(ctx, tx, communityID, targetUserID)
	})
}

// pendingJoin 查找用户对社区的待处理申请
func (s *CommunityService) pendingJoin(ctx context.Context, tx *repository.Store, communityID, userID uint) (*model.Request, error) {
	req, err := tx.Requests.FindByPairKey(ctx, model.JoinKey(communityID, userID))
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperr.ErrRequestNotFound.Withf("community=%d user=%d", communityID, userID)
	}
	if req.Status != model.RequestStatusPending {
		return nil, apperr.ErrAlreadyProcessed.Withf("id=%d", req.ID)
	}
	return req, nil
}

// clearPendingRole 仅当角色仍为 pending 时删除
func (s *CommunityService) clearPendingRole(ctx context.Context, tx *repository.Store, communityID, userID uint) error {
	role, err := tx.Communities.GetRole(ctx, communityID, userID)
	if err != nil {
		return err
	}
	if role != model.RolePending {
		return nil
	}
	_, err = tx.Communities.RemoveRole(ctx, communityID, userID)
	return err
}

// PromoteToAdmin 所有者将成员提升为管理员，已是管理员时无操作
func (s *CommunityService) PromoteToAdmin(ctx context.Context, communityID, targetUserID, actingUserID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := s.requireRole(ctx, tx, communityID, actingUserID, model.RoleSuperAdmin); err != nil {
			return err
		}
		role, err := tx.Communities.GetRole(ctx, communityID, targetUserID)
		if err != nil {
			return err
		}
		switch role {
		case model.RoleAdmin, model.RoleSuperAdmin:
			return nil
		case model.RoleMember:
			_, err := tx.Communities.ChangeRole(ctx, communityID, targetUserID, model.RoleMember, model.RoleAdmin)
			return err
		default:
			return apperr.ErrNotMember.Withf("user=%d role=%s", targetUserID, role)
		}
	})
}

// DemoteFromAdmin 所有者将管理员降为成员，已是成员时无操作
func (s *CommunityService) DemoteFromAdmin(ctx context.Context, communityID, targetUserID, actingUserID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := s.requireRole(ctx, tx, communityID, actingUserID, model.RoleSuperAdmin); err != nil {
			return err
		}
		role, err := tx.Communities.GetRole(ctx, communityID, targetUserID)
		if err != nil {
			return err
		}
		switch role {
		case model.RoleMember:
			return nil
		case model.RoleAdmin:
			_, err := tx.Communities.ChangeRole(ctx, communityID, targetUserID, model.RoleAdmin, model.RoleMember)
			return err
		case model.RoleSuperAdmin:
			return apperr.ErrCannotRemoveSuperAdmin
		default:
			return apperr.ErrNotMember.Withf("user=%d role=%s", targetUserID, role)
		}
	})
}

// RemoveMember 移除成员；移除管理员需要所有者权限，所有者不可移除
func (s *CommunityService) RemoveMember(ctx context.Context, communityID, targetUserID, actingUserID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := s.requireRole(ctx, tx, communityID, actingUserID, model.RoleAdmin); err != nil {
			return err
		}
		actorRole, err := tx.Communities.GetRole(ctx, communityID, actingUserID)
		if err != nil {
			return err
		}
		role, err := tx.Communities.GetRole(ctx, communityID, targetUserID)
		if err != nil {
			return err
		}
		switch role {
		case model.RoleSuperAdmin:
			return apperr.ErrCannotRemoveSuperAdmin
		case model.RoleAdmin:
			if actorRole != model.RoleSuperAdmin {
				return apperr.ErrNotSuperAdmin
			}
		case model.RoleMember:
		default:
			return apperr.ErrNotMember.Withf("user=%d role=%s", targetUserID, role)
		}

		_, err = tx.Communities.RemoveRole(ctx, communityID, targetUserID)
		return err
	})
}

// TransferOwnership 转让所有权：原所有者变为管理员，新所有者必须已是成员或管理员
func (s *CommunityService) TransferOwnership(ctx context.Context, communityID, newOwnerID, actingUserID uint) error {
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := s.requireRole(ctx, tx, communityID, actingUserID, model.RoleSuperAdmin); err != nil {
			return err
		}
		role, err := tx.Communities.GetRole(ctx, communityID, newOwnerID)
		if err != nil {
			return err
		}
		if role != model.RoleMember && role != model.RoleAdmin {
			return apperr.ErrInvalidTransferTarget.Withf("user=%d role=%s", newOwnerID, role)
		}

		ok, err := tx.Communities.ChangeRole(ctx, communityID, actingUserID, model.RoleSuperAdmin, model.RoleAdmin)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrNotSuperAdmin
		}
		if ok, err = tx.Communities.ChangeRole(ctx, communityID, newOwnerID, role, model.RoleSuperAdmin); err != nil {
			return err
		}
		if !ok {
			return apperr.ErrInvalidTransferTarget.Withf("user=%d", newOwnerID)
		}
		return tx.Communities.Update(ctx, communityID, map[string]interface{}{"super_admin_id": newOwnerID})
	})
	if err != nil {
		return err
	}

	logger.Info("社区所有权已转让", zap.Uint("community_id", communityID), zap.Uint("from", actingUserID), zap.Uint("to", newOwnerID))
	return nil
}

// LeaveCommunity 退出社区；所有者需先转让，以软失败返回
func (s *CommunityService) LeaveCommunity(ctx context.Context, communityID, userID uint) (*LeaveResult, error) {
	var result *LeaveResult
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Communities.GetByID(ctx, communityID); err != nil {
			return err
		}
		role, err := tx.Communities.GetRole(ctx, communityID, userID)
		if err != nil {
			return err
		}
		switch role {
		case model.RoleNone:
			return apperr.ErrNotMember
		case model.RoleSuperAdmin:
			result = &LeaveResult{Success: false, Message: "transfer ownership before leaving the community"}
			return nil
		case model.RolePending:
			// 申请中退出即撤回申请
			req, err := tx.Requests.FindByPairKey(ctx, model.JoinKey(communityID, userID))
			if err != nil {
				return err
			}
			if req != nil {
				if _, err := tx.Requests.DeletePending(ctx, req.ID); err != nil {
					return err
				}
			}
		}
		if _, err := tx.Communities.RemoveRole(ctx, communityID, userID); err != nil {
			return err
		}
		result = &LeaveResult{Success: true}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteCommunity 所有者删除社区，级联删除社区帖子、请求和角色
func (s *CommunityService) DeleteCommunity(ctx context.Context, communityID, actingUserID uint) error {
	var deleted int64
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := s.requireRole(ctx, tx, communityID, actingUserID, model.RoleSuperAdmin); err != nil {
			return err
		}
		var err error
		if deleted, err = tx.Posts.DeleteByCommunity(ctx, communityID); err != nil {
			return err
		}
		if err := tx.Requests.DeleteByCommunity(ctx, communityID); err != nil {
			return err
		}
		return tx.Communities.Delete(ctx, communityID)
	})
	if err != nil {
		return err
	}

	s.invalidate(communityID)
	logger.Info("社区已删除", zap.Uint("community_id", communityID), zap.Int64("posts", deleted))
	return nil
}

// UpdateCommunity 管理员更新社区资料
func (s *CommunityService) UpdateCommunity(ctx context.Context, communityID, actingUserID uint, in UpdateCommunityInput) (*model.Community, error) {
	var c *model.Community
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if c, err = s.requireRole(ctx, tx, communityID, actingUserID, model.RoleAdmin); err != nil {
			return err
		}

		var columns []string
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperr.ErrInvalidArgument.Withf("name is required")
			}
			taken, err := tx.Communities.NameExists(ctx, name, communityID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.ErrNameTaken.Withf("name=%s", name)
			}
			c.Name = name
			columns = append(columns, "name")
		}
		if in.Description != nil {
			c.Description = *in.Description
			columns = append(columns, "description")
		}
		if in.MediaURL != nil {
			c.MediaURL = *in.MediaURL
			columns = append(columns, "media_url")
		}
		if in.Hashtags != nil {
			c.Hashtags = *in.Hashtags
			columns = append(columns, "hashtags")
		}
		if len(columns) == 0 {
			return nil
		}
		if err := tx.Communities.SaveFields(ctx, c, columns...); err != nil {
			if isDuplicate(err) {
				return apperr.ErrNameTaken.Withf("name=%s", c.Name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(communityID)
	return c, nil
}

// SetPrivacy 所有者切换隐私；改为公开时所有申请中的用户直接成为成员
func (s *CommunityService) SetPrivacy(ctx context.Context, communityID, actingUserID uint, private bool) error {
	var promoted []uint
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		c, err := s.requireRole(ctx, tx, communityID, actingUserID, model.RoleSuperAdmin)
		if err != nil {
			return err
		}
		if c.IsPrivate == private {
			return nil
		}
		if err := tx.Communities.Update(ctx, communityID, map[string]interface{}{"is_private": private}); err != nil {
			return err
		}
		if private {
			return nil
		}

		joins, err := tx.Requests.ListPendingJoins(ctx, communityID)
		if err != nil {
			return err
		}
		for i := range joins {
			if err := acceptPending(ctx, tx, &joins[i]); err != nil {
				return err
			}
		}
		promoted, err = tx.Communities.PromoteAllPending(ctx, communityID)
		return err
	})
	if err != nil {
		return err
	}

	s.invalidate(communityID)
	logger.Info("社区隐私已修改", zap.Uint("community_id", communityID), zap.Bool("private", private), zap.Int("promoted", len(promoted)))
	return nil
}

// InviteToCommunity 管理员邀请用户加入社区
func (s *CommunityService) InviteToCommunity(ctx context.Context, communityID, actingUserID, inviteeID uint) (*model.Request, error) {
	if actingUserID == inviteeID {
		return nil, apperr.ErrSelfRequest
	}

	var (
		req       *model.Request
		community *model.Community
		actor     *model.User
	)
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if community, err = s.requireRole(ctx, tx, communityID, actingUserID, model.RoleAdmin); err != nil {
			return err
		}
		if actor, err = tx.Users.GetByID(ctx, actingUserID); err != nil {
			return err
		}
		if _, err := tx.Users.GetByID(ctx, inviteeID); err != nil {
			return err
		}
		blocked, err := tx.Blocks.EitherBlocked(ctx, actingUserID, inviteeID)
		if err != nil {
			return err
		}
		if blocked {
			return apperr.ErrBlocked
		}
		role, err := tx.Communities.GetRole(ctx, communityID, inviteeID)
		if err != nil {
			return err
		}
		if role.AtLeast(model.RoleMember) {
			return apperr.ErrAlreadyMember.Withf("role=%s", role)
		}

		req = &model.Request{
			RequesterID: actingUserID,
			RecipientID: uintPtr(inviteeID),
			CommunityID: uintPtr(communityID),
			Type:        model.RequestTypeCommunityInvite,
			Status:      model.RequestStatusPending,
			Metadata:    map[string]string{"community_name": community.Name},
			PairKey:     strPtr(model.InviteKey(communityID, inviteeID)),
		}
		if err := tx.Requests.Create(ctx, req); err != nil {
			if isDuplicate(err) {
				return apperr.ErrDuplicatePending
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, notify.NewEvent(model.NotifyCommunityInvite, inviteeID, actingUserID, uintPtr(req.ID), actor.Username, community.Name))
	return req, nil
}

// AcceptInvite 被邀请者接受邀请，成为成员；若有申请中的记录一并结束
func (s *CommunityService) AcceptInvite(ctx context.Context, requestID, actingUserID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		req, err := s.guardInvite(ctx, tx, requestID, actingUserID)
		if err != nil {
			return err
		}
		communityID := *req.CommunityID
		if _, err := tx.Communities.GetByID(ctx, communityID); err != nil {
			return err
		}
		if err := acceptPending(ctx, tx, req); err != nil {
			return err
		}

		role, err := tx.Communities.GetRole(ctx, communityID, actingUserID)
		if err != nil {
			return err
		}
		if role.AtLeast(model.RoleMember) {
			return nil
		}
		if role == model.RolePending {
			join, err := tx.Requests.FindByPairKey(ctx, model.JoinKey(communityID, actingUserID))
			if err != nil {
				return err
			}
			if join != nil {
				if err := acceptPending(ctx, tx, join); err != nil {
					return err
				}
			}
		}
		return tx.Communities.SetRole(ctx, communityID, actingUserID, model.RoleMember)
	})
}

// DeclineInvite 被邀请者拒绝邀请
func (s *CommunityService) DeclineInvite(ctx context.Context, requestID, actingUserID uint) error {
	return s.Store.Transaction(ctx, func(tx *repository.Store) error {
		req, err := s.guardInvite(ctx, tx, requestID, actingUserID)
		if err != nil {
			return err
		}
		return deletePending(ctx, tx, req)
	})
}

func (s *CommunityService) guardInvite(ctx context.Context, tx *repository.Store, requestID, actingUserID uint) (*model.Request, error) {
	req, err := loadPending(ctx, tx, requestID, model.RequestTypeCommunityInvite, recipientOf, actingUserID)
	if err != nil {
		return nil, err
	}
	if req.CommunityID == nil {
		return nil, apperr.ErrRequestNotFound.Withf("id=%d", requestID)
	}
	return req, nil
}

// ListInvites 用户收到的待处理邀请
func (s *CommunityService) ListInvites(ctx context.Context, userID uint) ([]RequestView, error) {
	records, err := s.Store.Requests.ListIncoming(ctx, userID, model.RequestTypeCommunityInvite)
	if err != nil {
		return nil, err
	}
	return requestViews(ctx, s.Store, records, requesterOf)
}

// ListCommunities 按名称搜索社区
func (s *CommunityService) ListCommunities(ctx context.Context, viewerID uint, query string, page, limit int) (*CommunityPage, error) {
	p, err := newPageRequest(page, limit, s.Limits)
	if err != nil {
		return nil, err
	}
	list, total, err := s.Store.Communities.Search(ctx, strings.TrimSpace(query), p.offset, p.limit)
	if err != nil {
		return nil, err
	}

	memberships, err := s.Store.Communities.MembershipsForUser(ctx, viewerID, model.RolePending)
	if err != nil {
		return nil, err
	}
	roles := make(map[uint]model.Role, len(memberships))
	for _, m := range memberships {
		roles[m.CommunityID] = m.Role
	}

	views := make([]CommunityView, 0, len(list))
	for i := range list {
		count, err := s.Store.Communities.CountMembers(ctx, list[i].ID)
		if err != nil {
			return nil, err
		}
		views = append(views, communityView(&list[i], count, roles[list[i].ID]))
	}
	return &CommunityPage{Communities: views, Pagination: p.result(total, len(views))}, nil
}

// ListUserCommunities 用户以成员及以上身份加入的社区
func (s *CommunityService) ListUserCommunities(ctx context.Context, userID uint) ([]CommunityView, error) {
	memberships, err := s.Store.Communities.MembershipsForUser(ctx, userID, model.RoleMember)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.CommunityID)
	}
	list, err := s.Store.Communities.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Community, len(list))
	for i := range list {
		byID[list[i].ID] = &list[i]
	}

	views := make([]CommunityView, 0, len(memberships))
	for _, m := range memberships {
		c, ok := byID[m.CommunityID]
		if !ok {
			continue
		}
		count, err := s.Store.Communities.CountMembers(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, communityView(c, count, m.Role))
	}
	return views, nil
}

// invalidate 删除社区摘要缓存，失败只记录日志
func (s *CommunityService) invalidate(communityID uint) {
	if !redis.Enabled() {
		return
	}
	if err := redis.InvalidateCommunity(communityID); err != nil {
		logger.Warn("社区缓存失效失败", zap.Uint("community_id", communityID), zap.Error(err))
	}
}
