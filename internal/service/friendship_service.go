package service

import (
	"context"

	"social-system/internal/model"
	"social-system/internal/notify"
	"social-system/internal/repository"
	"social-system/pkg/apperr"
	"social-system/pkg/logger"

	"go.uber.org/zap"
)

// 好友关系状态
const (
	FriendshipNone    = "none"
	FriendshipFriends = "friends"
	FriendshipPending = "pending"
)

// FriendshipStatus 资料页渲染按钮所需的关系状态
type FriendshipStatus struct {
	Status         string `json:"status"`
	CanSendRequest bool   `json:"can_send_request"`
	IsSender       bool   `json:"is_sender,omitempty"`
	FriendshipID   uint   `json:"friendship_id,omitempty"`
}

// FriendshipService 好友请求与好友关系
type FriendshipService struct {
	Deps
}

// NewFriendshipService 创建好友服务
func NewFriendshipService(d Deps) *FriendshipService {
	return &FriendshipService{Deps: d}
}

// SendFriendRequest 发送好友请求
func (s *FriendshipService) SendFriendRequest(ctx context.Context, requesterID, recipientID uint) (*model.Request, error) {
	if requesterID == recipientID {
		return nil, apperr.ErrSelfRequest
	}

	var req *model.Request
	var requester *model.User
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if requester, err = tx.Users.GetByID(ctx, requesterID); err != nil {
			return err
		}
		if _, err := tx.Users.GetByID(ctx, recipientID); err != nil {
			return err
		}

		blocked, err := tx.Blocks.EitherBlocked(ctx, requesterID, recipientID)
		if err != nil {
			return err
		}
		if blocked {
			return apperr.ErrBlocked
		}

		existing, err := tx.Requests.FindFriendRecord(ctx, requesterID, recipientID)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == model.RequestStatusAccepted {
				return apperr.ErrAlreadyFriends
			}
			return apperr.ErrDuplicatePending.Withf("id=%d", existing.ID)
		}

		req = &model.Request{
			RequesterID: requesterID,
			RecipientID: uintPtr(recipientID),
			Type:        model.RequestTypeFriend,
			Status:      model.RequestStatusPending,
			PairKey:     strPtr(model.FriendPairKey(requesterID, recipientID)),
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

	s.Projector.RequestSent(requesterID, recipientID)
	s.emit(ctx, notify.NewEvent(model.NotifyFriendRequest, recipientID, requesterID, uintPtr(req.ID), requester.Username))

	logger.Info("好友请求已发送", zap.Uint("request_id", req.ID), zap.Uint("from", requesterID), zap.Uint("to", recipientID))
	return req, nil
}

// AcceptFriendRequest 接收者接受好友请求
func (s *FriendshipService) AcceptFriendRequest(ctx context.Context, requestID, actingUserID uint) (*model.Request, error) {
	var req *model.Request
	var actor *model.User
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if req, err = s.guardRecipient(ctx, tx, requestID, actingUserID); err != nil {
			return err
		}
		if actor, err = tx.Users.GetByID(ctx, actingUserID); err != nil {
			return err
		}
		return acceptPending(ctx, tx, req)
	})
	if err != nil {
		return nil, err
	}

	s.Projector.FriendshipAccepted(req.RequesterID, actingUserID)
	s.emit(ctx, notify.NewEvent(model.NotifyFriendAccepted, req.RequesterID, actingUserID, uintPtr(req.ID), actor.Username))

	logger.Info("好友请求已接受", zap.Uint("request_id", req.ID))
	return req, nil
}

// RejectFriendRequest 接收者拒绝好友请求：删除记录，不通知请求方
func (s *FriendshipService) RejectFriendRequest(ctx context.Context, requestID, actingUserID uint) error {
	var req *model.Request
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if req, err = s.guardRecipient(ctx, tx, requestID, actingUserID); err != nil {
			return err
		}
		return deletePending(ctx, tx, req)
	})
	if err != nil {
		return err
	}

	s.Projector.RequestWithdrawn(req.RequesterID, actingUserID)
	return nil
}

// CancelFriendRequest 请求方撤回尚未处理的请求
func (s *FriendshipService) CancelFriendRequest(ctx context.Context, requestID, actingUserID uint) error {
	var req *model.Request
	err := s.Store.Transaction(ctx, func(tx *repository.Store) error {
		var err error
		if req, err = loadPending(ctx, tx, requestID, model.RequestTypeFriend, requesterOf, actingUserID); err != nil {
			return err
		}
		return deletePending(ctx, tx, req)
	})
	if err != nil {
		return err
	}

	s.Projector.RequestWithdrawn(actingUserID, recipientOf(req))
	return nil
}

// guardRecipient 接受/拒绝的公共守卫：存在、是好友请求、操作者是接收者、仍待处理
func (s *FriendshipService) guardRecipient(ctx context.Context, tx *repository.Store, requestID, actingUserID uint) (*model.Request, error) {
	return loadPending(ctx, tx, requestID, model.RequestTypeFriend, recipientOf, actingUserID)
}

// RemoveFriend 解除好友关系
func (s *FriendshipService) RemoveFriend(ctx context.Context, userID, friendID uint) error {
	if userID == friendID {
		return apperr.ErrNotFriends
	}

	ok, err := s.Store.Requests.DeleteFriendship(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFriends
	}

	s.Projector.FriendshipRemoved(userID, friendID)
	logger.Info("好友关系已解除", zap.Uint("user", userID), zap.Uint("friend", friendID))
	return nil
}

// GetFriendshipStatus 查询 viewer 与 other 的关系，守卫条件不会报错
func (s *FriendshipService) GetFriendshipStatus(ctx context.Context, viewerID, otherID uint) (FriendshipStatus, error) {
	return friendshipStatus(ctx, s.Store, viewerID, otherID)
}

func friendshipStatus(ctx context.Context, store *repository.Store, viewerID, otherID uint) (FriendshipStatus, error) {
	if viewerID == otherID {
		return FriendshipStatus{Status: FriendshipNone}, nil
	}

	record, err := store.Requests.FindFriendRecord(ctx, viewerID, otherID)
	if err != nil {
		return FriendshipStatus{Status: FriendshipNone}, err
	}
	if record == nil {
		blocked, err := store.Blocks.EitherBlocked(ctx, viewerID, otherID)
		if err != nil {
			return FriendshipStatus{Status: FriendshipNone}, err
		}
		return FriendshipStatus{Status: FriendshipNone, CanSendRequest: !blocked}, nil
	}
	if record.Status == model.RequestStatusAccepted {
		return FriendshipStatus{Status: FriendshipFriends, FriendshipID: record.ID}, nil
	}
	return FriendshipStatus{
		Status:       FriendshipPending,
		IsSender:     record.RequesterID == viewerID,
		FriendshipID: record.ID,
	}, nil
}

// FriendPage 好友列表分页
type FriendPage struct {
	Friends    []model.UserSummary `json:"friends"`
	Pagination Pagination          `json:"pagination"`
}

// ListFriends 分页列出好友，最近成为好友的在前
func (s *FriendshipService) ListFriends(ctx context.Context, userID uint, page, limit int) (*FriendPage, error) {
	p, err := newPageRequest(page, limit, s.Limits)
	if err != nil {
		return nil, err
	}

	records, total, err := s.Store.Requests.ListFriendships(ctx, userID, p.offset, p.limit)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(records))
	for i := range records {
		ids = append(ids, records[i].OtherParty(userID))
	}
	friends, err := summaries(ctx, s.Store, ids)
	if err != nil {
		return nil, err
	}
	return &FriendPage{Friends: friends, Pagination: p.result(total, len(friends))}, nil
}

// ListIncomingRequests 收到的待处理好友请求
func (s *FriendshipService) ListIncomingRequests(ctx context.Context, userID uint) ([]RequestView, error) {
	records, err := s.Store.Requests.ListIncoming(ctx, userID, model.RequestTypeFriend)
	if err != nil {
		return nil, err
	}
	return requestViews(ctx, s.Store, records, requesterOf)
}

// ListSentRequests 发出的待处理好友请求
func (s *FriendshipService) ListSentRequests(ctx context.Context, userID uint) ([]RequestView, error) {
	records, err := s.Store.Requests.ListSent(ctx, userID, model.RequestTypeFriend)
	if err != nil {
		return nil, err
	}
	return requestViews(ctx, s.Store, records, recipientOf)
}

// GetMutualFriends 两人的共同好友
func (s *FriendshipService) GetMutualFriends(ctx context.Context, viewerID, otherID uint) ([]model.UserSummary, error) {
	mine, err := s.Store.Requests.FriendIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	theirs, err := s.Store.Requests.FriendIDs(ctx, otherID)
	if err != nil {
		return nil, err
	}

	set := make(map[uint]bool, len(mine))
	for _, id := range mine {
		set[id] = true
	}
	var common []uint
	for _, id := range theirs {
		if set[id] && id != viewerID && id != otherID {
			common = append(common, id)
		}
	}
	return summaries(ctx, s.Store, common)
}
