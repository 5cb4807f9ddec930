package service

import (
	"context"
	"errors"
	"math"

	"social-system/config"
	"social-system/internal/graph"
	"social-system/internal/model"
	"social-system/internal/notify"
	"social-system/internal/repository"
	"social-system/pkg/apperr"

	"gorm.io/gorm"
)

// Deps 服务层公共依赖
type Deps struct {
	Store     *repository.Store
	Projector *graph.Projector
	Sink      notify.Sink
	Limits    config.FeedConfig
}

// Pagination 分页元信息
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"total_pages"`
	Total       int64 `json:"total"`
	HasMore     bool  `json:"has_more"`
}

type pageRequest struct {
	page   int
	limit  int
	offset int
}

// newPageRequest 校验分页参数：limit 必须 >= 1 且不超过上限，page < 1 按 1 处理，过大的 page 截断
func newPageRequest(page, limit int, limits config.FeedConfig) (pageRequest, error) {
	if limit < 1 {
		return pageRequest{}, apperr.ErrInvalidArgument.Withf("limit must be >= 1")
	}
	if limits.MaxLimit > 0 && limit > limits.MaxLimit {
		limit = limits.MaxLimit
	}
	if page < 1 {
		page = 1
	}
	// 偏移量不超过 int32 范围
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}
	return pageRequest{page: page, limit: limit, offset: (page - 1) * limit}, nil
}

// result returned 为过滤后实际返回的条数，total 为过滤前总数
func (p pageRequest) result(total int64, returned int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(p.limit) - 1) / int64(p.limit))
	}
	return Pagination{
		CurrentPage: p.page,
		Limit:       p.limit,
		TotalPages:  totalPages,
		Total:       total,
		HasMore:     int64(p.offset+returned) < total,
	}
}

// emit 发送通知，Sink 为空时忽略
func (d Deps) emit(ctx context.Context, e notify.Event) {
	if d.Sink != nil {
		d.Sink.Emit(ctx, e)
	}
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func uintPtr(v uint) *uint { return &v }

func strPtr(v string) *string { return &v }

// summaries 按 ids 顺序返回存在的用户摘要，不存在的用户被跳过
func summaries(ctx context.Context, store *repository.Store, ids []uint) ([]model.UserSummary, error) {
	users, err := store.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			out = append(out, u.Summary())
		}
	}
	return out, nil
}
