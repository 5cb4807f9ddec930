package model

import (
	"time"

	"gorm.io/gorm"
)

// User 用户模型
// 索引与唯一约束：用户名唯一、邮箱唯一
// 说明：密码仅存储哈希（PasswordHash），不存储明文
// 拉黑关系不内嵌在用户上，见 UserBlock
type User struct {
	ID           uint           `gorm:"primaryKey"`
	Username     string         `gorm:"type:varchar(64);not null;uniqueIndex;comment:用户名"`
	Email        string         `gorm:"type:varchar(128);uniqueIndex;comment:邮箱"`
	PasswordHash string         `gorm:"type:varchar(255);not null;comment:密码哈希"`
	Bio          string         `gorm:"type:varchar(512);comment:个人简介"`
	PhotoURL     string         `gorm:"type:varchar(255);comment:头像URL"`
	IsPrivate    bool           `gorm:"not null;default:false;comment:私密账号"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

// TableName 指定表名（因全局配置使用单数表名，这里与结构体名一致为 user）
func (User) TableName() string { return "user" }

// UserSummary 对外展示的用户摘要
type UserSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	PhotoURL string `json:"photo_url"`
	Bio      string `json:"bio"`
}

// Summary 生成用户摘要
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, PhotoURL: u.PhotoURL, Bio: u.Bio}
}
