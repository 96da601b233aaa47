package services

import (
	"context"
	"errors"
	"time"

	"iap-gateway/internal/database"
	"iap-gateway/internal/events"
	"iap-gateway/internal/models"
	"iap-gateway/pkg/logging"

	"gorm.io/gorm"
)

// 订阅状态
const (
	StatusActive    = "active"
	StatusGrace     = "grace"
	StatusOnHold    = "on_hold"
	StatusPaused    = "paused"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
	StatusRefunded  = "refunded"
	StatusRevoked   = "revoked"
)

// SubscriptionStore 将事件写入订阅表和事件日志
type SubscriptionStore struct {
	db *gorm.DB
}

func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

func (s *SubscriptionStore) Name() string { return "store" }

func (s *SubscriptionStore) Deliver(ctx context.Context, envelope EventEnvelope) error {
	if envelope.UniqueIdentifier == "" {
		logging.Warnf("Event %s (%s) has no purchase lineage, not stored", envelope.ID, envelope.Kind)
		return nil
	}

	db := s.db.WithContext(ctx)
	occurredAt := envelope.OccurredAt.Time()
	var expiresDate time.Time
	if envelope.ExpiresDate != nil {
		expiresDate = envelope.ExpiresDate.Time()
	}

	subscription := &models.Subscription{
		Provider:             string(envelope.Provider),
		UniqueIdentifier:     envelope.UniqueIdentifier,
		BundleID:             envelope.BundleID,
		Status:               StatusFor(envelope.Kind, envelope.Subtype, envelope.ExpiresDate),
		LastEventKind:        string(envelope.Kind),
		LastNotificationType: envelope.NotificationType,
		ItemID:               envelope.ItemID,
		ExpiresDate:          expiresDate,
		LastEventAt:          occurredAt,
	}

	// 旧事件仍写入日志，但不覆盖订阅状态
	if err := database.UpsertSubscription(db, subscription); err != nil && !errors.Is(err, database.ErrStaleEvent) {
		return err
	}

	event := &models.SubscriptionEvent{
		EventID:          envelope.ID,
		Provider:         string(envelope.Provider),
		UniqueIdentifier: envelope.UniqueIdentifier,
		Kind:             string(envelope.Kind),
		NotificationType: envelope.NotificationType,
		Subtype:          envelope.Subtype,
		ItemID:           envelope.ItemID,
		ExpiresDate:      expiresDate,
		OccurredAt:       occurredAt,
	}
	return database.RecordSubscriptionEvent(db, event)
}

// StatusFor 根据事件类型推导订阅状态
func StatusFor(kind events.Kind, subtype string, expires *models.Time) string {
	switch kind {
	case events.KindRefund, events.KindSubscriptionRevoked:
		return StatusRefunded
	case events.KindRevoke:
		return StatusRevoked
	case events.KindCancel, events.KindSubscriptionCanceled:
		return StatusCancelled
	case events.KindExpired, events.KindGracePeriodExpired, events.KindSubscriptionExpired:
		return StatusExpired
	case events.KindSubscriptionOnHold:
		return StatusOnHold
	case events.KindSubscriptionPaused:
		return StatusPaused
	case events.KindSubscriptionInGracePeriod:
		return StatusGrace
	case events.KindDidFailToRenew:
		if subtype == "GRACE_PERIOD" {
			return StatusGrace
		}
	}

	if expires != nil && !expires.Time().After(time.Now()) {
		return StatusExpired
	}
	return StatusActive
}
