package model

import (
	"time"

	"gorm.io/gorm"
)

// Post 帖子
type Post struct {
	ID          uint           `gorm:"primaryKey"`
	AuthorID    uint           `gorm:"not null;index;comment:作者ID"`
	TextBody    string         `gorm:"type:text;comment:正文"`
	MediaURL    string         `gorm:"type:varchar(255);comment:媒体URL"`
	Hashtags    []string       `gorm:"serializer:json;type:text;comment:话题标签"`
	CommunityID *uint          `gorm:"index;comment:所属社区ID"`
	CreatedAt   time.Time      `gorm:"index;comment:创建时间"`
	UpdatedAt   time.Time      `gorm:"comment:更新时间"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Post) TableName() string { return "post" }

// ReactionKind 反应类型
type ReactionKind string

const (
	ReactionUp   ReactionKind = "up"   // 赞
	ReactionDown ReactionKind = "down" // 踩
)

// PostReaction 帖子反应，每个 (帖子, 用户) 至多一行，赞和踩天然互斥
type PostReaction struct {
	PostID    uint         `gorm:"primaryKey;comment:帖子ID"`
	UserID    uint         `gorm:"primaryKey;comment:用户ID"`
	Kind      ReactionKind `gorm:"type:varchar(8);not null;comment:反应类型"`
	CreatedAt time.Time    `gorm:"comment:创建时间"`
	UpdatedAt time.Time    `gorm:"comment:更新时间"`
}

func (PostReaction) TableName() string { return "post_reaction" }

// ReactionStats 单个帖子的反应统计
type ReactionStats struct {
	Likes       int64
	Dislikes    int64
	HasLiked    bool
	HasDisliked bool
}
