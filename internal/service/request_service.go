package service

import (
	"context"

	"social-system/internal/model"
	"social-system/internal/repository"
	"social-system/pkg/apperr"
)

// 好友请求与社区加入/邀请共用的请求状态机：
//
//	none -> pending -> accepted   (好友请求接受后记录保留，即好友关系)
//	none -> pending -> (删除)     (拒绝、撤回)
//
// 所有迁移都是条件更新，并发时只有一方成功，另一方得到 AlreadyProcessed。

// loadPending 读取请求并依次校验类型、操作者与状态
// actor 取出有权处理该请求的一方
func loadPending(ctx context.Context, tx *repository.Store, id uint, typ model.RequestType, actor func(*model.Request) uint, actingUserID uint) (*model.Request, error) {
	req, err := tx.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Type != typ {
		return nil, apperr.ErrRequestNotFound.Withf("id=%d", id)
	}
	if actor(req) != actingUserID {
		return nil, apperr.ErrNotAuthorized
	}
	if req.Status != model.RequestStatusPending {
		return nil, apperr.ErrAlreadyProcessed.Withf("id=%d status=%s", id, req.Status)
	}
	return req, nil
}

// acceptPending pending -> accepted；社区请求接受后释放唯一键
func acceptPending(ctx context.Context, tx *repository.Store, req *model.Request) error {
	ok, err := tx.Requests.MarkAccepted(ctx, req.ID, req.Type != model.RequestTypeFriend)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrAlreadyProcessed.Withf("id=%d", req.ID)
	}
	req.Status = model.RequestStatusAccepted
	if req.Type != model.RequestTypeFriend {
		req.PairKey = nil
	}
	return nil
}

// deletePending 拒绝或撤回：直接删除记录，允许之后重新发起
func deletePending(ctx context.Context, tx *repository.Store, req *model.Request) error {
	ok, err := tx.Requests.DeletePending(ctx, req.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrAlreadyProcessed.Withf("id=%d", req.ID)
	}
	return nil
}

// RequestView 请求及对方用户信息
type RequestView struct {
	ID          uint                    `json:"id"`
	Type        model.RequestType       `json:"type"`
	Status      model.RequestStatus     `json:"status"`
	User        model.UserSummary       `json:"user"`
	CommunityID *uint                   `json:"community_id,omitempty"`
	Community   *model.CommunitySummary `json:"community,omitempty"`
	Metadata    map[string]string       `json:"metadata,omitempty"`
	CreatedAt   string                  `json:"created_at"`
}

// requestViews 组装请求视图，counterpart 决定展示哪一方的用户
// 对方用户已不存在的请求被跳过
func requestViews(ctx context.Context, store *repository.Store, records []model.Request, counterpart func(*model.Request) uint) ([]RequestView, error) {
	ids := make([]uint, 0, len(records))
	var communityIDs []uint
	for i := range records {
		ids = append(ids, counterpart(&records[i]))
		if records[i].CommunityID != nil {
			communityIDs = append(communityIDs, *records[i].CommunityID)
		}
	}

	users, err := store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	communities := make(map[uint]model.CommunitySummary)
	if len(communityIDs) > 0 {
		list, err := store.Communities.FindByIDs(ctx, communityIDs)
		if err != nil {
			return nil, err
		}
		for i := range list {
			communities[list[i].ID] = list[i].Summary()
		}
	}

	views := make([]RequestView, 0, len(records))
	for i := range records {
		r := &records[i]
		u, ok := users[counterpart(r)]
		if !ok {
			continue
		}
		v := RequestView{
			ID:          r.ID,
			Type:        r.Type,
			Status:      r.Status,
			User:        u.Summary(),
			CommunityID: r.CommunityID,
			Metadata:    r.Metadata,
			CreatedAt:   r.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if r.CommunityID != nil {
			if c, ok := communities[*r.CommunityID]; ok {
				v.Community = &c
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func requesterOf(r *model.Request) uint { return r.RequesterID }

func recipientOf(r *model.Request) uint {
	if r.RecipientID == nil {
		return 0
	}
	return *r.RecipientID
}
