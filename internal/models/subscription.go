package models

import (
	"time"
)

// Subscription 订阅模型
// 每条购买链路（App Store original transaction id / Google Play purchase token）只保存一行，作为统一的订阅状态源
type Subscription struct {
	BaseModel

	// 购买链路标识
	Provider         string `json:"provider" gorm:"not null;size:20;uniqueIndex:idx_subscription_lineage"`           // app-store 或 google-play
	UniqueIdentifier string `json:"unique_identifier" gorm:"not null;size:255;uniqueIndex:idx_subscription_lineage"` // original transaction id 或 purchase token
	BundleID         string `json:"bundle_id" gorm:"size:255;index"`                                                 // iOS bundle ID 或 Android package name

	// 订阅状态字段
	Status               string `json:"status" gorm:"not null;size:20;index"` // active、grace、on_hold、paused、cancelled、expired、refunded
	LastEventKind        string `json:"last_event_kind" gorm:"size:50"`       // 最近一次解析出的事件类型
	LastNotificationType string `json:"last_notification_type" gorm:"size:50"`

	// 商品与时间
	ItemID      string    `json:"item_id" gorm:"size:100"`   // 产品ID / subscription ID
	ExpiresDate time.Time `json:"expires_date" gorm:"index"` // 过期日期
	LastEventAt time.Time `json:"last_event_at"`             // 最近事件时间
}
