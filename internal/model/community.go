package model

import "time"

// Role 社区内角色，数值越大权限越高
type Role int16

const (
	RoleNone       Role = 0 // 未加入（不落库）
	RolePending    Role = 1 // 私密社区申请中
	RoleMember     Role = 2 // 成员
	RoleAdmin      Role = 3 // 管理员
	RoleSuperAdmin Role = 4 // 所有者，每个社区恰好一个
)

// String 角色名称
func (r Role) String() string {
	switch r {
	case RolePending:
		return "pending"
	case RoleMember:
		return "member"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "superAdmin"
	default:
		return "none"
	}
}

// AtLeast 角色是否不低于 min
func (r Role) AtLeast(min Role) bool {
	return r >= min
}

// Community 社区
// SuperAdminID 冗余记录所有者，与 CommunityMember 中的 superAdmin 行在同一事务内维护
type Community struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"type:varchar(64);not null;uniqueIndex;comment:社区名称"`
	Description  string    `gorm:"type:text;comment:社区描述"`
	MediaURL     string    `gorm:"type:varchar(255);comment:封面URL"`
	IsPrivate    bool      `gorm:"not null;default:false;comment:是否私密"`
	SuperAdminID uint      `gorm:"not null;index;comment:所有者ID"`
	Hashtags     []string  `gorm:"serializer:json;type:text;comment:话题标签"`
	CreatedAt    time.Time `gorm:"comment:创建时间"`
	UpdatedAt    time.Time `gorm:"comment:更新时间"`
}

func (Community) TableName() string { return "community" }

// CommunityMember 社区角色映射，每个 (社区, 用户) 至多一行
// 用单行枚举替代按角色分开的 ID 集合，杜绝同一用户同时出现在两个角色集合中
type CommunityMember struct {
	CommunityID uint      `gorm:"primaryKey;comment:社区ID"`
	UserID      uint      `gorm:"primaryKey;index;comment:用户ID"`
	Role        Role      `gorm:"type:smallint;not null;index;comment:角色"`
	CreatedAt   time.Time `gorm:"comment:创建时间"`
	UpdatedAt   time.Time `gorm:"comment:更新时间"`
}

func (CommunityMember) TableName() string { return "community_member" }

// CommunitySummary 动态流中附带的社区摘要
type CommunitySummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	MediaURL  string `json:"media_url"`
	IsPrivate bool   `json:"is_private"`
}

// Summary 生成社区摘要
func (c *Community) Summary() CommunitySummary {
	return CommunitySummary{ID: c.ID, Name: c.Name, MediaURL: c.MediaURL, IsPrivate: c.IsPrivate}
}
