package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/database"
	"iap-gateway/internal/googleplay"
	"iap-gateway/internal/models"
	"iap-gateway/internal/notifications"
)

type stubReceiptVerifier struct {
	resp   *appstore.ReceiptResponse
	err    error
	secret string
}

func (v *stubReceiptVerifier) VerifyReceipt(ctx context.Context, receiptData, sharedSecret string, excludeOldTransactions bool) (*appstore.ReceiptResponse, error) {
	v.secret = sharedSecret
	return v.resp, v.err
}

func receiptResponse(t *testing.T, expires time.Time) *appstore.ReceiptResponse {
	t.Helper()
	ms := strconv.FormatInt(expires.UnixMilli(), 10)
	body := `{
		"status": 0,
		"environment": "Sandbox",
		"receipt": {"bundle_id": "com.example.app"},
		"latest_receipt_info": [
			{"original_transaction_id": "700", "transaction_id": "701", "product_id": "pro.monthly", "expires_date_ms": "1600000000000"},
			{"original_transaction_id": "700", "transaction_id": "702", "product_id": "pro.yearly", "expires_date_ms": "` + ms + `"}
		]
	}`
	resp, err := appstore.ParseReceiptResponse([]byte(body))
	if err != nil {
		t.Fatalf("parse receipt: %v", err)
	}
	return resp
}

func TestVerifyAppleReceipt(t *testing.T) {
	db := newTestDB(t)
	verifier := &stubReceiptVerifier{resp: receiptResponse(t, time.Now().Add(time.Hour))}
	svc := NewSubscriptionVerificationService(verifier, nil, db, "shared", false)

	result, err := svc.VerifyAppleReceipt(context.Background(), "MIIT...")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verifier.secret != "shared" {
		t.Fatalf("shared secret not passed")
	}
	if result.Status != StatusActive || result.Environment != "Sandbox" || result.Subscription.ItemID != "pro.yearly" {
		t.Fatalf("unexpected result: %+v", result)
	}

	sub, err := database.GetSubscription(db, "app-store", "700")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sub.BundleID != "com.example.app" || sub.Status != StatusActive || sub.LastEventKind != verifiedEventKind {
		t.Fatalf("unexpected row: %+v", sub)
	}
}

func TestVerifyAppleReceiptInvalidStatus(t *testing.T) {
	verifier := &stubReceiptVerifier{err: &appstore.InvalidReceiptStatusError{Code: 21003, Reason: "the receipt could not be authenticated"}}
	svc := NewSubscriptionVerificationService(verifier, nil, nil, "", false)

	_, err := svc.VerifyAppleReceipt(context.Background(), "bad")
	var statusErr *appstore.InvalidReceiptStatusError
	if !errors.As(err, &statusErr) || statusErr.Code != 21003 {
		t.Fatalf("expected InvalidReceiptStatusError 21003, got %v", err)
	}
}

func TestVerifyAppleReceiptExpired(t *testing.T) {
	verifier := &stubReceiptVerifier{resp: receiptResponse(t, time.Now().Add(-time.Hour))}
	svc := NewSubscriptionVerificationService(verifier, nil, nil, "", false)

	result, err := svc.VerifyAppleReceipt(context.Background(), "MIIT...")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != StatusExpired || result.Subscription.IsActive() {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestVerifyGooglePlayPurchase(t *testing.T) {
	db := newTestDB(t)
	expiry := models.TimeFrom(time.Now().Add(time.Hour))
	fetcher := &stubFetcher{purchase: &googleplay.SubscriptionPurchase{ExpiryTime: expiry}}
	svc := NewSubscriptionVerificationService(nil, fetcher, db, "", false)

	result, err := svc.VerifyGooglePlayPurchase(context.Background(), "com.example.app", "pro.monthly", "token-abc")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.Status != StatusActive || result.Subscription.UniqueIdentifier != "token-abc" || result.Subscription.ExpiryTime != expiry {
		t.Fatalf("unexpected result: %+v", result)
	}
	if _, err := database.GetSubscription(db, "google-play", "token-abc"); err != nil {
		t.Fatalf("row not stored: %v", err)
	}

	noFetcher := NewSubscriptionVerificationService(nil, nil, nil, "", false)
	if _, err := noFetcher.VerifyGooglePlayPurchase(context.Background(), "com.example.app", "pro.monthly", "token-abc"); !errors.Is(err, notifications.ErrNoFetcher) {
		t.Fatalf("expected ErrNoFetcher, got %v", err)
	}
}
