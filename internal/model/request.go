package model

import (
	"fmt"
	"time"
)

// RequestType 请求类型
type RequestType string

const (
	RequestTypeFriend          RequestType = "friend_request"
	RequestTypeCommunityJoin   RequestType = "community_join"
	RequestTypeCommunityInvite RequestType = "community_invite"
)

// RequestStatus 请求状态
// rejected 不会落库：拒绝即删除记录
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Request 好友请求与社区加入/邀请请求的统一信封
// 好友请求被接受后记录保留（status=accepted），即好友关系本身
// PairKey 对"存活"记录唯一：
//   - 好友：friend:<小ID>:<大ID>，双向共用一个键，保证每对用户至多一条未拒绝记录
//   - 社区：join/invite:<社区ID>:<用户ID>，仅 pending 时有值，接受后清空
type Request struct {
	ID          uint              `gorm:"primaryKey"`
	RequesterID uint              `gorm:"not null;index;comment:发起者ID"`
	RecipientID *uint             `gorm:"index;comment:目标用户ID(好友请求/邀请)"`
	CommunityID *uint             `gorm:"index;comment:目标社区ID"`
	Type        RequestType       `gorm:"type:varchar(32);not null;index;comment:请求类型"`
	Status      RequestStatus     `gorm:"type:varchar(16);not null;default:'pending';index;comment:请求状态"`
	Metadata    map[string]string `gorm:"serializer:json;type:text;comment:附加信息"`
	PairKey     *string           `gorm:"type:varchar(96);uniqueIndex;comment:存活记录唯一键"`
	CreatedAt   time.Time         `gorm:"comment:创建时间"`
	UpdatedAt   time.Time         `gorm:"comment:更新时间"`
}

func (Request) TableName() string { return "request" }

// OtherParty 返回好友记录中除 userID 之外的一方
func (r *Request) OtherParty(userID uint) uint {
	if r.RequesterID == userID && r.RecipientID != nil {
		return *r.RecipientID
	}
	return r.RequesterID
}

// Involves 判断用户是否为好友记录的一方
func (r *Request) Involves(userID uint) bool {
	return r.RequesterID == userID || (r.RecipientID != nil && *r.RecipientID == userID)
}

// FriendPairKey 无序用户对的唯一键
func FriendPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("friend:%d:%d", a, b)
}

// JoinKey 社区加入申请的唯一键
func JoinKey(communityID, userID uint) string {
	return fmt.Sprintf("join:%d:%d", communityID, userID)
}

// InviteKey 社区邀请的唯一键
func InviteKey(communityID, userID uint) string {
	return fmt.Sprintf("invite:%d:%d", communityID, userID)
}
