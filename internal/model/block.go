package model

import "time"

// UserBlock 拉黑关系（BlockerID 拉黑了 BlockedID）
// 关系库中的拉黑记录是唯一事实来源，图中的 BLOCKED 边只是派生索引
type UserBlock struct {
	BlockerID uint      `gorm:"primaryKey;comment:拉黑发起者"`
	BlockedID uint      `gorm:"primaryKey;index;comment:被拉黑者"`
	CreatedAt time.Time `gorm:"comment:创建时间"`
}

func (UserBlock) TableName() string { return "user_block" }
