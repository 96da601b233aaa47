package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/database"
	"iap-gateway/internal/models"
	"iap-gateway/internal/notifications"
	"iap-gateway/pkg/logging"

	"gorm.io/gorm"
)

// 主动校验写入的事件类型，不属于通知事件集合
const verifiedEventKind = "VERIFIED"

// SubscriptionVerificationService 提供客户端主动提交的订阅校验
type SubscriptionVerificationService struct {
	receipts               appstore.ReceiptVerifier
	fetcher                notifications.SubscriptionFetcher
	db                     *gorm.DB
	sharedSecret           string
	excludeOldTransactions bool
}

// NewSubscriptionVerificationService 创建订阅校验服务
// fetcher 为 nil 时 Google Play 校验返回 notifications.ErrNoFetcher；db 为 nil 时不落库
func NewSubscriptionVerificationService(receipts appstore.ReceiptVerifier, fetcher notifications.SubscriptionFetcher, db *gorm.DB, sharedSecret string, excludeOldTransactions bool) *SubscriptionVerificationService {
	return &SubscriptionVerificationService{
		receipts:               receipts,
		fetcher:                fetcher,
		db:                     db,
		sharedSecret:           sharedSecret,
		excludeOldTransactions: excludeOldTransactions,
	}
}

// VerificationResult 校验结果
type VerificationResult struct {
	Subscription notifications.Subscription
	Environment  string
	Status       string
}

// VerifyAppleReceipt 校验 iOS 收据
// 21007 的沙盒重试由 appstore.ReceiptClient 完成
func (s *SubscriptionVerificationService) VerifyAppleReceipt(ctx context.Context, receiptData string) (*VerificationResult, error) {
	resp, err := s.receipts.VerifyReceipt(ctx, receiptData, s.sharedSecret, s.excludeOldTransactions)
	if err != nil {
		return nil, err
	}
	if !resp.IsValid() {
		return nil, fmt.Errorf("receipt verification returned status %d", resp.StatusCode())
	}

	sub, err := notifications.SubscriptionFromReceipt(resp)
	if err != nil {
		return nil, err
	}

	bundleID := ""
	if receipt, ok := resp.Receipt(); ok && receipt.BundleID != nil {
		bundleID = *receipt.BundleID
	}

	result := &VerificationResult{
		Subscription: sub,
		Environment:  string(resp.Environment()),
		Status:       statusOf(sub),
	}
	if err := s.save(ctx, sub, bundleID, result.Status); err != nil {
		return nil, err
	}
	return result, nil
}

// VerifyGooglePlayPurchase 通过 Play Developer API 校验 Android 订阅
func (s *SubscriptionVerificationService) VerifyGooglePlayPurchase(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*VerificationResult, error) {
	if s.fetcher == nil {
		return nil, notifications.ErrNoFetcher
	}
	purchase, err := s.fetcher.FetchSubscription(ctx, packageName, subscriptionID, purchaseToken)
	if err != nil {
		return nil, err
	}

	sub := notifications.Subscription{
		ExpiryTime:       purchase.ExpiryTime,
		ItemID:           subscriptionID,
		Provider:         notifications.ProviderGooglePlay,
		UniqueIdentifier: purchaseToken,
		Representation:   purchase,
	}
	result := &VerificationResult{
		Subscription: sub,
		Status:       statusOf(sub),
	}
	if err := s.save(ctx, sub, packageName, result.Status); err != nil {
		return nil, err
	}
	return result, nil
}

func statusOf(sub notifications.Subscription) string {
	if sub.IsActive() {
		return StatusActive
	}
	return StatusExpired
}

// save 保存校验结果，较新的通知状态优先
func (s *SubscriptionVerificationService) save(ctx context.Context, sub notifications.Subscription, bundleID, status string) error {
	if s.db == nil {
		return nil
	}
	row := &models.Subscription{
		Provider:             string(sub.Provider),
		UniqueIdentifier:     sub.UniqueIdentifier,
		BundleID:             bundleID,
		Status:               status,
		LastEventKind:        verifiedEventKind,
		LastNotificationType: verifiedEventKind,
		ItemID:               sub.ItemID,
		ExpiresDate:          sub.ExpiryTime.Time(),
		LastEventAt:          time.Now(),
	}
	err := database.UpsertSubscription(s.db.WithContext(ctx), row)
	if errors.Is(err, database.ErrStaleEvent) {
		logging.Infof("Subscription %s already has a newer event, keeping stored status %s", sub.UniqueIdentifier, row.Status)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}
