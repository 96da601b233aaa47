package googleplay

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"iap-gateway/internal/models"
	"iap-gateway/internal/testutil"
)

func TestParsePushBodySubscription(t *testing.T) {
	body := testutil.GooglePushBody(t, map[string]any{
		"version":         "1.0",
		"packageName":     "com.example.app",
		"eventTimeMillis": "1700000000000",
		"subscriptionNotification": map[string]any{
			"version":          "1.0",
			"notificationType": 4,
			"purchaseToken":    "token-abc",
			"subscriptionId":   "pro.monthly",
		},
	})

	n, err := ParsePushBody(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if n.PackageName != "com.example.app" || n.EventTimeMillis != models.Time(1700000000000) {
		t.Fatalf("unexpected notification: %+v", n)
	}
	if n.MessageID != "136969346945" || n.Subscription == "" {
		t.Fatalf("pubsub metadata not kept: %+v", n)
	}

	sub, ok := n.SubscriptionNotification()
	if !ok {
		t.Fatalf("expected subscription payload, got %T", n.Payload)
	}
	if sub.NotificationType != SubscriptionPurchased || sub.SubscriptionID != "pro.monthly" {
		t.Fatalf("unexpected payload: %+v", sub)
	}
	if n.PurchaseToken() != "token-abc" || n.IsTest() {
		t.Fatalf("unexpected token or test flag")
	}
}

func TestParsePushBodyPrefersOneTimeProduct(t *testing.T) {
	body := testutil.GooglePushBody(t, map[string]any{
		"version":         "1.0",
		"packageName":     "com.example.app",
		"eventTimeMillis": 1700000000000,
		"oneTimeProductNotification": map[string]any{
			"version":          "1.0",
			"notificationType": 1,
			"purchaseToken":    "otp-token",
			"sku":              "coins.100",
		},
		"subscriptionNotification": map[string]any{
			"version":          "1.0",
			"notificationType": 2,
			"purchaseToken":    "sub-token",
			"subscriptionId":   "pro.monthly",
		},
	})

	n, err := ParsePushBody(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	p, ok := n.OneTimeProductNotification()
	if !ok {
		t.Fatalf("expected one-time payload, got %T", n.Payload)
	}
	if p.NotificationType != OneTimeProductPurchased || p.SKU != "coins.100" || n.PurchaseToken() != "otp-token" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestParsePushBodyTest(t *testing.T) {
	body := testutil.GooglePushBody(t, map[string]any{
		"version":          "1.0",
		"packageName":      "com.example.app",
		"eventTimeMillis":  "1700000000000",
		"testNotification": map[string]any{"version": "1.0"},
	})

	n, err := ParsePushBody(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !n.IsTest() || n.Payload.Kind() != PayloadTest || n.PurchaseToken() != "" {
		t.Fatalf("expected test notification, got %T", n.Payload)
	}
}

func TestParseDataAcceptsUnpaddedBase64(t *testing.T) {
	data := base64.RawStdEncoding.EncodeToString([]byte(`{"version":"1.0","packageName":"p","eventTimeMillis":"1"}`))
	if strings.HasSuffix(data, "=") {
		t.Fatalf("expected unpadded input")
	}
	if _, err := ParseData(data); err != nil {
		t.Fatalf("parse: %v", err)
	}
}

func TestParsePushBodyErrors(t *testing.T) {
	encode := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }
	push := func(data string) []byte {
		return []byte(`{"message":{"data":"` + data + `","messageId":"1"},"subscription":"s"}`)
	}

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte(`nope`)},
		{"missing data", []byte(`{"message":{}}`)},
		{"bad base64", push("***")},
		{"data not json", push(encode("hello"))},
		{"missing version", push(encode(`{"packageName":"p","eventTimeMillis":"1"}`))},
		{"missing packageName", push(encode(`{"version":"1.0","eventTimeMillis":"1"}`))},
		{"missing eventTimeMillis", push(encode(`{"version":"1.0","packageName":"p"}`))},
		{"subscription missing token", push(encode(`{"version":"1.0","packageName":"p","eventTimeMillis":"1","subscriptionNotification":{"version":"1.0","notificationType":2,"subscriptionId":"s"}}`))},
		{"one-time missing sku", push(encode(`{"version":"1.0","packageName":"p","eventTimeMillis":"1","oneTimeProductNotification":{"version":"1.0","notificationType":1,"purchaseToken":"t"}}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParsePushBody(tt.body); !errors.Is(err, models.ErrDecode) {
				t.Fatalf("expected decode error, got %v", err)
			}
		})
	}
}

func TestSubscriptionNotificationTypeNames(t *testing.T) {
	if SubscriptionRecovered.String() != "SUBSCRIPTION_RECOVERED" || SubscriptionExpired.String() != "SUBSCRIPTION_EXPIRED" {
		t.Fatalf("unexpected names")
	}
	if SubscriptionNotificationType(99).String() != "99" || SubscriptionNotificationType(0).Valid() {
		t.Fatalf("unexpected handling of unknown types")
	}
	for i := 1; i <= 13; i++ {
		typ := SubscriptionNotificationType(i)
		parsed, ok := ParseSubscriptionNotificationType(typ.String())
		if !ok || parsed != typ {
			t.Fatalf("name table does not round trip for %d", i)
		}
	}
	if _, ok := ParseSubscriptionNotificationType("SUBSCRIPTION_UNKNOWN"); ok {
		t.Fatalf("unexpected match")
	}
}
