package models

import (
	"time"
)

// SubscriptionEvent 订阅事件日志
// 每个成功分发的通知写入一行，event_id 唯一
type SubscriptionEvent struct {
	BaseModel

	EventID          string `json:"event_id" gorm:"not null;size:36;uniqueIndex"`
	Provider         string `json:"provider" gorm:"not null;size:20;index:idx_event_lineage"`
	UniqueIdentifier string `json:"unique_identifier" gorm:"not null;size:255;index:idx_event_lineage"`

	// 事件类型
	Kind             string `json:"kind" gorm:"not null;size:50;index"` // 解析后的事件类型
	NotificationType string `json:"notification_type" gorm:"size:50"`   // 平台原始通知类型
	Subtype          string `json:"subtype" gorm:"size:50"`

	ItemID      string    `json:"item_id" gorm:"size:100"`
	ExpiresDate time.Time `json:"expires_date"`
	OccurredAt  time.Time `json:"occurred_at"`
}
