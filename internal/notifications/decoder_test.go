package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/googleplay"
	"iap-gateway/internal/jws"
	"iap-gateway/internal/models"
	"iap-gateway/internal/testutil"
)

type fakeFetcher struct {
	purchase *googleplay.SubscriptionPurchase
	err      error
	calls    []string
}

func (f *fakeFetcher) FetchSubscription(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*googleplay.SubscriptionPurchase, error) {
	f.calls = append(f.calls, packageName+"/"+subscriptionID+"/"+purchaseToken)
	return f.purchase, f.err
}

func newV2Decoder(t *testing.T) (*Decoder, *testutil.CertificateChain) {
	t.Helper()
	chain := testutil.NewCertificateChain(t)
	verifier := jws.NewSignatureVerifier(jws.NewCertificateChainResolver(chain.Roots))
	return NewDecoder(verifier, nil), chain
}

func TestDecodeAppStoreV2DidRenew(t *testing.T) {
	decoder, chain := newV2Decoder(t)
	token := chain.SignedPayload(t, "DID_RENEW", "", "com.example.app",
		map[string]any{
			"transactionId":         "3000000000000002",
			"originalTransactionId": "3000000000000001",
			"productId":             "pro.monthly",
			"type":                  appstore.TypeAutoRenewable,
			"expiresDate":           int64(4102444800000),
		},
		map[string]any{"autoRenewProductId": "pro.monthly", "autoRenewStatus": 1},
	)

	n, err := decoder.DecodeNotification(context.Background(), ProviderAppStore, testutil.SignedPayloadBody(t, token))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.Provider() != ProviderAppStore || n.IsTest() || n.BundleID() != "com.example.app" || n.Type() != "DID_RENEW" {
		t.Fatalf("unexpected notification: %s %v %s %s", n.Provider(), n.IsTest(), n.BundleID(), n.Type())
	}
	v2, ok := n.(*AppStoreV2Notification)
	if !ok {
		t.Fatalf("expected *AppStoreV2Notification, got %T", n)
	}
	if !v2.IsAutoRenewal() {
		t.Fatalf("expected auto renewal on")
	}

	sub, err := n.Subscription(context.Background())
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	if sub.UniqueIdentifier != "3000000000000001" || sub.ItemID != "pro.monthly" || !sub.IsActive() {
		t.Fatalf("unexpected snapshot: %+v", sub)
	}
	if _, ok := sub.Representation.(*appstore.TransactionClaims); !ok {
		t.Fatalf("unexpected representation %T", sub.Representation)
	}
}

func TestDecodeAppStoreV2Test(t *testing.T) {
	decoder, chain := newV2Decoder(t)
	token := chain.SignedPayload(t, appstore.NotificationTypeTest, "", "com.example.app", nil, nil)

	n, err := decoder.DecodeNotification(context.Background(), ProviderAppStore, testutil.SignedPayloadBody(t, token))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !n.IsTest() {
		t.Fatalf("expected test notification")
	}
	if _, err := n.Subscription(context.Background()); !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("expected ErrNoSubscription, got %v", err)
	}
}

func TestDecodeAppStoreV2ExpiredTransactionIsNotRejected(t *testing.T) {
	decoder, chain := newV2Decoder(t)
	token := chain.SignedPayload(t, "EXPIRED", "VOLUNTARY", "com.example.app",
		map[string]any{
			"transactionId":         "1",
			"originalTransactionId": "1",
			"productId":             "pro.monthly",
			"type":                  appstore.TypeAutoRenewable,
			"expiresDate":           int64(946684800000),
		}, nil)

	n, err := decoder.DecodeNotification(context.Background(), ProviderAppStore, testutil.SignedPayloadBody(t, token))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sub, err := n.Subscription(context.Background())
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	if sub.IsActive() || sub.ExpiryTime != models.Time(946684800000) {
		t.Fatalf("expected expired snapshot, got %+v", sub)
	}
}

func TestDecodeAppStoreV2Rejections(t *testing.T) {
	decoder, chain := newV2Decoder(t)
	other := testutil.NewCertificateChain(t)
	ctx := context.Background()

	untrusted := other.SignedPayload(t, "DID_RENEW", "", "com.example.app", nil, nil)
	n, err := decoder.DecodeNotification(ctx, ProviderAppStore, testutil.SignedPayloadBody(t, untrusted))
	if !errors.Is(err, jws.ErrSignatureRejected) {
		t.Fatalf("expected rejection for untrusted chain, got %v", err)
	}
	if n != nil {
		t.Fatalf("rejected token returned a notification: %#v", n)
	}

	valid := chain.SignedPayload(t, "DID_RENEW", "", "com.example.app", nil, nil)
	parts := strings.Split(valid, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	if _, err := decoder.DecodeNotification(ctx, ProviderAppStore, testutil.SignedPayloadBody(t, tampered)); !errors.Is(err, jws.ErrSignatureRejected) {
		t.Fatalf("expected rejection for tampered signature, got %v", err)
	}

	if _, err := decoder.DecodeNotification(ctx, ProviderAppStore, testutil.SignedPayloadBody(t, "a.b")); !errors.Is(err, jws.ErrMalformedToken) {
		t.Fatalf("expected malformed token, got %v", err)
	}

	unverified := NewDecoder(nil, nil)
	if _, err := unverified.DecodeNotification(ctx, ProviderAppStore, testutil.SignedPayloadBody(t, valid)); !errors.Is(err, jws.ErrSignatureRejected) {
		t.Fatalf("a decoder without a verifier must fail closed, got %v", err)
	}
}

const legacyBody = `{
	"notification_type": "DID_CHANGE_RENEWAL_STATUS",
	"environment": "PROD",
	"password": "secret",
	"bid": "com.example.app",
	"bvrs": "42",
	"auto_renew_status": "false",
	"auto_renew_product_id": "pro.yearly",
	"auto_renew_status_change_date_ms": "1700000100000",
	"unified_receipt": {
		"status": 0,
		"environment": "Production",
		"latest_receipt": "bGF0ZXN0LXJlY2VpcHQ=",
		"latest_receipt_info": [
			{"original_transaction_id": "500", "transaction_id": "502", "product_id": "pro.monthly", "expires_date_ms": "1700000300000"},
			{"original_transaction_id": "500", "transaction_id": "501", "product_id": "pro.monthly", "expires_date_ms": "1700000200000"}
		]
	}
}`

func TestDecodeAppStoreLegacy(t *testing.T) {
	decoder := NewDecoder(nil, nil)
	n, err := decoder.DecodeNotification(context.Background(), ProviderAppStore, []byte(legacyBody))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	legacy, ok := n.(*AppStoreNotification)
	if !ok {
		t.Fatalf("expected *AppStoreNotification, got %T", n)
	}
	if legacy.IsTest() || legacy.Type() != "DID_CHANGE_RENEWAL_STATUS" || legacy.BundleID() != "com.example.app" {
		t.Fatalf("unexpected notification fields")
	}
	if legacy.IsAutoRenewal() {
		t.Fatalf("auto_renew_status false must not be auto renewal")
	}
	if d, ok := legacy.AutoRenewStatusChangeDate(); !ok || d != models.Time(1700000100000) {
		t.Fatalf("unexpected change date %v", d)
	}
	if blob, ok := legacy.LatestReceipt(); !ok || string(blob) != "latest-receipt" {
		t.Fatalf("unexpected latest receipt %q", blob)
	}

	sub, err := legacy.Subscription(context.Background())
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	info, ok := sub.Representation.(appstore.LatestReceiptInfo)
	if !ok || info.TransactionID != "502" || sub.UniqueIdentifier != "500" {
		t.Fatalf("expected element 0 as snapshot, got %+v", sub)
	}
}

func TestDecodeAppStoreLegacyErrors(t *testing.T) {
	decoder := NewDecoder(nil, nil)

	mutate := func(f func(map[string]any)) []byte {
		var m map[string]any
		if err := json.Unmarshal([]byte(legacyBody), &m); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		f(m)
		b, _ := json.Marshal(m)
		return b
	}

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte(`{`)},
		{"missing type", mutate(func(m map[string]any) { delete(m, "notification_type") })},
		{"missing unified receipt", mutate(func(m map[string]any) { delete(m, "unified_receipt") })},
		{"bad latest receipt", mutate(func(m map[string]any) {
			m["unified_receipt"].(map[string]any)["latest_receipt"] = "%%%"
		})},
		{"transaction missing id", mutate(func(m map[string]any) {
			m["unified_receipt"].(map[string]any)["latest_receipt_info"] = []any{map[string]any{"product_id": "p"}}
		})},
		{"missing latest receipt", mutate(func(m map[string]any) {
			delete(m["unified_receipt"].(map[string]any), "latest_receipt")
		})},
		{"missing latest receipt info", mutate(func(m map[string]any) {
			delete(m["unified_receipt"].(map[string]any), "latest_receipt_info")
		})},
		{"empty latest receipt info", mutate(func(m map[string]any) {
			m["unified_receipt"].(map[string]any)["latest_receipt_info"] = []any{}
		})},
		{"status only unified receipt", mutate(func(m map[string]any) {
			m["unified_receipt"] = map[string]any{"status": 0}
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := decoder.DecodeNotification(context.Background(), ProviderAppStore, tt.body)
			if !errors.Is(err, models.ErrDecode) {
				t.Fatalf("expected decode error, got %v", err)
			}
			if n != nil {
				t.Fatalf("expected no notification on failure")
			}
		})
	}
}

func TestDecodeAppStoreV2WithoutOriginalTransaction(t *testing.T) {
	decoder, chain := newV2Decoder(t)
	token := chain.SignedPayload(t, "DID_RENEW", "", "com.example.app",
		map[string]any{
			"transactionId": "3000000000000002",
			"productId":     "pro.monthly",
			"type":          appstore.TypeAutoRenewable,
			"expiresDate":   int64(4102444800000),
		}, nil)

	n, err := decoder.DecodeNotification(context.Background(), ProviderAppStore, testutil.SignedPayloadBody(t, token))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub, err := n.Subscription(context.Background()); !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("expected ErrNoSubscription, got %+v %v", sub, err)
	}
}

func TestDecodeGooglePlayErrorsReturnNoNotification(t *testing.T) {
	decoder := NewDecoder(nil, nil)
	for _, body := range []string{`{`, `{"message":{}}`, `{"message":{"data":"%%%"}}`} {
		n, err := decoder.DecodeNotification(context.Background(), ProviderGooglePlay, []byte(body))
		if err == nil {
			t.Fatalf("expected error for %s", body)
		}
		if n != nil {
			t.Fatalf("failed decode of %s returned %#v", body, n)
		}
	}
}

func TestDecodeGooglePlaySubscription(t *testing.T) {
	fetcher := &fakeFetcher{purchase: &googleplay.SubscriptionPurchase{ExpiryTime: models.Time(4102444800000), AutoRenewing: true}}
	decoder := NewDecoder(nil, fetcher)
	body := testutil.GooglePushBody(t, map[string]any{
		"version":         "1.0",
		"packageName":     "com.example.app",
		"eventTimeMillis": "1700000000000",
		"subscriptionNotification": map[string]any{
			"version":          "1.0",
			"notificationType": 2,
			"purchaseToken":    "tok-1",
			"subscriptionId":   "pro.monthly",
		},
	})

	n, err := decoder.DecodeNotification(context.Background(), ProviderGooglePlay, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.Type() != "2" || n.IsTest() || n.BundleID() != "com.example.app" || n.OccurredAt() != models.Time(1700000000000) {
		t.Fatalf("unexpected notification: %s %v %s", n.Type(), n.IsTest(), n.BundleID())
	}

	sub, err := n.Subscription(context.Background())
	if err != nil {
		t.Fatalf("subscription: %v", err)
	}
	if sub.UniqueIdentifier != "tok-1" || sub.ItemID != "pro.monthly" || sub.Provider != ProviderGooglePlay || !sub.IsActive() {
		t.Fatalf("unexpected snapshot: %+v", sub)
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "com.example.app/pro.monthly/tok-1" {
		t.Fatalf("unexpected fetcher calls: %v", fetcher.calls)
	}
}

func TestDecodeGooglePlayOneTimeProduct(t *testing.T) {
	decoder := NewDecoder(nil, &fakeFetcher{})
	body := testutil.GooglePushBody(t, map[string]any{
		"version":         "1.0",
		"packageName":     "com.example.app",
		"eventTimeMillis": "1700000000000",
		"oneTimeProductNotification": map[string]any{
			"version":          "1.0",
			"notificationType": 1,
			"purchaseToken":    "otp",
			"sku":              "coins.100",
		},
	})

	n, err := decoder.DecodeNotification(context.Background(), ProviderGooglePlay, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if n.IsTest() {
		t.Fatalf("one-time product notification is not a test")
	}
	g := n.(*GooglePlayNotification)
	if g.DeveloperNotification().Payload.Kind() != googleplay.PayloadOneTimeProduct {
		t.Fatalf("unexpected payload kind %s", g.DeveloperNotification().Payload.Kind())
	}
	if _, err := n.Subscription(context.Background()); !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("expected ErrNoSubscription, got %v", err)
	}
}

func TestDecodeGooglePlayTest(t *testing.T) {
	decoder := NewDecoder(nil, nil)
	body := testutil.GooglePushBody(t, map[string]any{
		"version":          "1.0",
		"packageName":      "com.example.app",
		"eventTimeMillis":  "1700000000000",
		"testNotification": map[string]any{"version": "1.0"},
	})

	n, err := decoder.DecodeNotification(context.Background(), ProviderGooglePlay, body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !n.IsTest() || n.Type() != TestNotificationType {
		t.Fatalf("expected test notification, got type %s", n.Type())
	}
}

func TestDecodeUnknownProvider(t *testing.T) {
	if _, err := NewDecoder(nil, nil).DecodeNotification(context.Background(), Provider("amazon"), []byte(`{}`)); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if _, err := ParseProvider("amazon"); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if p, err := ParseProvider("google-play"); err != nil || p != ProviderGooglePlay {
		t.Fatalf("unexpected provider %q, %v", p, err)
	}
}

func TestSubscriptionFromReceipt(t *testing.T) {
	resp, err := appstore.ParseReceiptResponse([]byte(`{"status":0,"latest_receipt_info":[
		{"original_transaction_id":"1","transaction_id":"a","product_id":"pro.monthly","expires_date_ms":"1700000100000"},
		{"original_transaction_id":"1","transaction_id":"b","product_id":"pro.yearly","expires_date_ms":"1700000900000"},
		{"original_transaction_id":"2","transaction_id":"c","product_id":"coins"}
	]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sub, err := SubscriptionFromReceipt(resp)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if sub.ItemID != "pro.yearly" || sub.ExpiryTime != models.Time(1700000900000) {
		t.Fatalf("expected latest expiring record, got %+v", sub)
	}

	empty, _ := appstore.ParseReceiptResponse([]byte(`{"status":0}`))
	if _, err := SubscriptionFromReceipt(empty); !errors.Is(err, ErrNoSubscription) {
		t.Fatalf("expected ErrNoSubscription, got %v", err)
	}
}
