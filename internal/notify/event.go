// Package notify 以事件方式投递通知：状态迁移只负责发出事件，
// 持久化与计数由 Sink 异步完成，投递失败不会影响主流程。
package notify

import (
	"context"
	"fmt"
	"time"

	"social-system/internal/model"

	"github.com/google/uuid"
)

// Event 通知事件
type Event struct {
	ID          string    `json:"id"`
	RecipientID uint      `json:"recipient_id"`
	SenderID    uint      `json:"sender_id"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	RelatedID   *uint     `json:"related_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Attempts    int       `json:"attempts,omitempty"`
}

// Sink 通知出口，Emit 不返回错误，失败只记录日志
type Sink interface {
	Emit(ctx context.Context, e Event)
}

// 消息模板，%s 为发送者用户名
var templates = map[string]string{
	model.NotifyFriendRequest:         "%s te envió una solicitud de amistad",
	model.NotifyFriendAccepted:        "%s aceptó tu solicitud de amistad",
	model.NotifyCommunityJoinRequest:  "%s quiere unirse a tu comunidad %s",
	model.NotifyCommunityJoinAccepted: "%s aceptó tu solicitud para unirte a la comunidad %s",
	model.NotifyCommunityInvite:       "%s te invitó a unirte a la comunidad %s",
}

// NewEvent 创建带唯一ID的事件，args 依次填入模板（发送者用户名、社区名）
func NewEvent(typ string, recipientID, senderID uint, relatedID *uint, args ...interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        typ,
		Message:     render(typ, args...),
		RelatedID:   relatedID,
		CreatedAt:   time.Now().UTC(),
	}
}

func render(typ string, args ...interface{}) string {
	tpl, ok := templates[typ]
	if !ok {
		return typ
	}
	return fmt.Sprintf(tpl, args...)
}

// toModel 事件转为持久化模型
func (e Event) toModel() *model.Notification {
	return &model.Notification{
		EventID:     e.ID,
		RecipientID: e.RecipientID,
		SenderID:    e.SenderID,
		Type:        e.Type,
		Message:     e.Message,
		RelatedID:   e.RelatedID,
		CreatedAt:   e.CreatedAt,
	}
}
