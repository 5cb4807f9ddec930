package model

import "time"

// 通知类型
const (
	NotifyFriendRequest         = "friend_request"
	NotifyFriendAccepted        = "friend_accepted"
	NotifyCommunityJoinRequest  = "community_join_request"
	NotifyCommunityJoinAccepted = "community_join_accepted"
	NotifyCommunityInvite       = "community_invite"
)

// Notification 通知
// EventID 来自事件，重复投递时按其去重
type Notification struct {
	ID          uint       `gorm:"primaryKey"`
	EventID     string     `gorm:"type:varchar(36);uniqueIndex;comment:事件ID"`
	RecipientID uint       `gorm:"not null;index;comment:接收者ID"`
	SenderID    uint       `gorm:"not null;comment:发送者ID"`
	Type        string     `gorm:"type:varchar(32);not null;comment:通知类型"`
	Message     string     `gorm:"type:varchar(255);comment:通知内容"`
	RelatedID   *uint      `gorm:"comment:关联请求ID"`
	IsRead      bool       `gorm:"not null;default:false;index;comment:是否已读"`
	ReadAt      *time.Time `gorm:"index;comment:阅读时间"`
	CreatedAt   time.Time  `gorm:"index;comment:创建时间"`
}

func (Notification) TableName() string { return "notification" }

// All 需要自动迁移的模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserBlock{},
		&Request{},
		&Community{},
		&CommunityMember{},
		&Post{},
		&PostReaction{},
		&Notification{},
	}
}
