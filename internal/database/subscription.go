package database

import (
	"errors"

	"iap-gateway/internal/models"
	"iap-gateway/pkg/logging"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleEvent 表示事件早于已保存的状态，未覆盖订阅
var ErrStaleEvent = errors.New("event older than stored subscription state")

// GetSubscription 通过购买链路获取订阅
func GetSubscription(db *gorm.DB, provider, uniqueIdentifier string) (*models.Subscription, error) {
	var subscription models.Subscription
	err := db.Where("provider = ? AND unique_identifier = ?", provider, uniqueIdentifier).First(&subscription).Error
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

// lockSubscription 以 SELECT ... FOR UPDATE 读取订阅行（SQLite 不支持行锁，驱动会忽略该子句）
func lockSubscription(tx *gorm.DB, provider, uniqueIdentifier string, dest *models.Subscription) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("provider = ? AND unique_identifier = ?", provider, uniqueIdentifier).
		First(dest)
}

// UpsertSubscription 创建或更新订阅
// 以 provider + unique_identifier 查找，使用数据库事务确保并发安全
// 平台可能乱序投递通知，早于 last_event_at 的事件不会覆盖当前状态
func UpsertSubscription(db *gorm.DB, subscription *models.Subscription) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var existing models.Subscription
		err := lockSubscription(tx, subscription.Provider, subscription.UniqueIdentifier, &existing).Error

		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// 创建新订阅
				return tx.Create(subscription).Error
			}
			return err
		}

		if subscription.LastEventAt.Before(existing.LastEventAt) {
			logging.Infof("Skipping stale event - provider: %s, unique_identifier: %s, event_at: %v, stored: %v",
				subscription.Provider, subscription.UniqueIdentifier, subscription.LastEventAt, existing.LastEventAt)
			*subscription = existing
			return ErrStaleEvent
		}

		// 更新其他字段
		existing.Status = subscription.Status
		existing.LastEventKind = subscription.LastEventKind
		existing.LastNotificationType = subscription.LastNotificationType
		existing.LastEventAt = subscription.LastEventAt
		if subscription.BundleID != "" {
			existing.BundleID = subscription.BundleID
		}
		if subscription.ItemID != "" {
			existing.ItemID = subscription.ItemID
		}
		if !subscription.ExpiresDate.IsZero() {
			existing.ExpiresDate = subscription.ExpiresDate
		}

		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*subscription = existing
		return nil
	})
}

// RecordSubscriptionEvent 写入事件日志
func RecordSubscriptionEvent(db *gorm.DB, event *models.SubscriptionEvent) error {
	return db.Create(event).Error
}

// ListSubscriptionEvents 按时间顺序获取购买链路的事件
func ListSubscriptionEvents(db *gorm.DB, provider, uniqueIdentifier string) ([]models.SubscriptionEvent, error) {
	var events []models.SubscriptionEvent
	err := db.Where("provider = ? AND unique_identifier = ?", provider, uniqueIdentifier).
		Order("occurred_at ASC, id ASC").
		Find(&events).Error
	return events, err
}
