package repository

import (
	"context"
	"errors"

	"social-system/internal/model"
	"social-system/pkg/apperr"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PostRepository 帖子与反应仓储
type PostRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建PostRepository实例
func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

// PostQuery 帖子查询条件
//
// 可见范围 = (作者 ∈ AuthorIDs 且 帖子不在浏览者不可见的私密社区)
//
//	∪ (IncludeCommunities 时：社区 ∈ MemberCommunityIDs)
//
// 排除 ExcludeAuthorIDs 中的作者（拉黑关系）
type PostQuery struct {
	AuthorIDs          []uint
	MemberCommunityIDs []uint
	IncludeCommunities bool
	ExcludeAuthorIDs   []uint
	Offset             int
	Limit              int
}

// Create 创建帖子
func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// GetByID 根据ID获取帖子
func (r *PostRepository) GetByID(ctx context.Context, id uint) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrPostNotFound.Withf("id=%d", id)
		}
		return nil, err
	}
	return &post, nil
}

// SaveFields 按结构体保存指定列
func (r *PostRepository) SaveFields(ctx context.Context, post *model.Post, columns ...string) error {
	res := r.db.WithContext(ctx).Model(post).Select(columns).Updates(post)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.ErrPostNotFound.Withf("id=%d", post.ID)
	}
	return nil
}

// Delete 删除帖子及其反应
func (r *PostRepository) Delete(ctx context.Context, id uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", id).Delete(&model.PostReaction{}).Error; err != nil {
		return err
	}
	return db.Delete(&model.Post{}, id).Error
}

// DeleteByCommunity 删除社区下所有帖子，返回删除数量
func (r *PostRepository) DeleteByCommunity(ctx context.Context, communityID uint) (int64, error) {
	db := r.db.WithContext(ctx)
	postIDs := db.Model(&model.Post{}).Select("id").Where("community_id = ?", communityID)
	if err := db.Where("post_id IN (?)", postIDs).Delete(&model.PostReaction{}).Error; err != nil {
		return 0, err
	}
	res := db.Where("community_id = ?", communityID).Delete(&model.Post{})
	return res.RowsAffected, res.Error
}

// CountByAuthor 作者的帖子数
func (r *PostRepository) CountByAuthor(ctx context.Context, authorID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Post{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// Find 按可见范围分页查询帖子，按创建时间倒序
// 返回当前页帖子和过滤前总数
func (r *PostRepository) Find(ctx context.Context, q PostQuery) ([]model.Post, int64, error) {
	db := r.db.WithContext(ctx)
	publicIDs := db.Model(&model.Community{}).Select("id").Where("is_private = ?", false)

	// 作者范围内的帖子：非社区帖、公开社区帖或浏览者所在社区的帖子
	visible := db.Where("community_id IS NULL").Or("community_id IN (?)", publicIDs)
	if len(q.MemberCommunityIDs) > 0 {
		visible = visible.Or("community_id IN ?", q.MemberCommunityIDs)
	}
	scope := db.Where("author_id IN ?", nonEmpty(q.AuthorIDs)).Where(visible)
	if q.IncludeCommunities && len(q.MemberCommunityIDs) > 0 {
		scope = scope.Or("community_id IN ?", q.MemberCommunityIDs)
	}

	base := func() *gorm.DB {
		tx := db.Model(&model.Post{}).Where(scope)
		if len(q.ExcludeAuthorIDs) > 0 {
			tx = tx.Where("author_id NOT IN ?", q.ExcludeAuthorIDs)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []model.Post
	err := offsetLimit(base(), q.Offset, q.Limit).
		Order("created_at DESC").Order("id DESC").
		Find(&posts).Error
	return posts, total, err
}

// FindByCommunity 分页查询社区帖子
func (r *PostRepository) FindByCommunity(ctx context.Context, communityID uint, excludeAuthorIDs []uint, offset, limit int) ([]model.Post, int64, error) {
	base := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&model.Post{}).Where("community_id = ?", communityID)
		if len(excludeAuthorIDs) > 0 {
			tx = tx.Where("author_id NOT IN ?", excludeAuthorIDs)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []model.Post
	err := offsetLimit(base(), offset, limit).
		Order("created_at DESC").Order("id DESC").
		Find(&posts).Error
	return posts, total, err
}

// GetReaction 获取用户对帖子的反应，不存在返回 nil, nil
func (r *PostRepository) GetReaction(ctx context.Context, postID, userID uint) (*model.PostReaction, error) {
	var reaction model.PostReaction
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Take(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reaction, nil
}

// SetReaction 设置反应（upsert），赞和踩共用一行
func (r *PostRepository) SetReaction(ctx context.Context, postID, userID uint, kind model.ReactionKind) error {
	reaction := model.PostReaction{PostID: postID, UserID: userID, Kind: kind}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
	}).Create(&reaction).Error
}

// DeleteReaction 取消反应
func (r *PostRepository) DeleteReaction(ctx context.Context, postID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&model.PostReaction{}).Error
}

// ReactionStats 批量统计帖子反应，并标注浏览者自己的反应
func (r *PostRepository) ReactionStats(ctx context.Context, postIDs []uint, viewerID uint) (map[uint]*model.ReactionStats, error) {
	stats := make(map[uint]*model.ReactionStats, len(postIDs))
	if len(postIDs) == 0 {
		return stats, nil
	}
	for _, id := range postIDs {
		stats[id] = &model.ReactionStats{}
	}

	var rows []struct {
		PostID uint
		Kind   model.ReactionKind
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.PostReaction{}).
		Select("post_id, kind, COUNT(*) AS total").
		Where("post_id IN ?", postIDs).
		Group("post_id, kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		s := stats[row.PostID]
		if s == nil {
			continue
		}
		switch row.Kind {
		case model.ReactionUp:
			s.Likes = row.Total
		case model.ReactionDown:
			s.Dislikes = row.Total
		}
	}

	var mine []model.PostReaction
	err = r.db.WithContext(ctx).
		Where("post_id IN ? AND user_id = ?", postIDs, viewerID).
		Find(&mine).Error
	if err != nil {
		return nil, err
	}
	for _, reaction := range mine {
		s := stats[reaction.PostID]
		if s == nil {
			continue
		}
		s.HasLiked = reaction.Kind == model.ReactionUp
		s.HasDisliked = reaction.Kind == model.ReactionDown
	}

	return stats, nil
}

// nonEmpty 避免 IN () 空列表
func nonEmpty(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{0}
	}
	return ids
}
