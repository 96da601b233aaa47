package googleplay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"iap-gateway/internal/models"
)

type publisherStub struct {
	mu    sync.Mutex
	calls []string
}

func (s *publisherStub) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, r.Method+" "+r.URL.Path)
}

func (s *publisherStub) called(suffix string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if strings.HasSuffix(c, suffix) {
			return true
		}
	}
	return false
}

func newTestService(t *testing.T) (*androidpublisher.Service, *publisherStub) {
	t.Helper()
	stub := &publisherStub{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.record(r)
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path
		switch {
		case strings.HasSuffix(path, "/purchases/subscriptions/pro.monthly/tokens/tok") && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"orderId":              "GPA.1234",
				"startTimeMillis":      "1700000000000",
				"expiryTimeMillis":     "1702592000000",
				"autoRenewing":         true,
				"paymentState":         1,
				"acknowledgementState": 1,
				"priceCurrencyCode":    "USD",
				"priceAmountMicros":    "4990000",
			})
		case strings.HasSuffix(path, "/tokens/tok:defer"):
			_ = json.NewEncoder(w).Encode(map[string]any{"newExpiryTimeMillis": "1705270400000"})
		case strings.HasSuffix(path, "/purchases/products/coins.100/tokens/otp") && r.Method == http.MethodGet:
			_ = json.NewEncoder(w).Encode(map[string]any{
				"orderId":            "GPA.5678",
				"productId":          "coins.100",
				"purchaseTimeMillis": "1700000000000",
				"purchaseState":      0,
				"consumptionState":   0,
				"quantity":           2,
			})
		case strings.Contains(path, ":"):
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	svc, err := NewService(context.Background(), "",
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
		option.WithoutAuthentication(),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, stub
}

func TestSubscriptionClient(t *testing.T) {
	svc, stub := newTestService(t)
	client := NewSubscriptionClient(svc, "com.example.app", "pro.monthly", "tok")
	ctx := context.Background()

	p, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.ExpiryTime != models.Time(1702592000000) || !p.AutoRenewing || !p.IsAcknowledged() {
		t.Fatalf("unexpected purchase: %+v", p)
	}
	if p.PaymentState == nil || *p.PaymentState != 1 || p.PriceAmountMicros != 4990000 {
		t.Fatalf("unexpected payment fields: %+v", p)
	}

	newExpiry, err := client.Defer(ctx, p.ExpiryTime, models.Time(1705270400000))
	if err != nil {
		t.Fatalf("defer: %v", err)
	}
	if newExpiry != models.Time(1705270400000) {
		t.Fatalf("unexpected new expiry %d", newExpiry)
	}

	if err := client.Acknowledge(ctx, "payload"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if err := client.Cancel(ctx); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := client.Refund(ctx); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if err := client.Revoke(ctx); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	for _, op := range []string{":acknowledge", ":cancel", ":refund", ":revoke", ":defer"} {
		if !stub.called("/tokens/tok" + op) {
			t.Fatalf("expected %s to be called", op)
		}
	}
}

func TestProductClient(t *testing.T) {
	svc, stub := newTestService(t)
	client := NewProductClient(svc, "com.example.app", "coins.100", "otp")
	ctx := context.Background()

	p, err := client.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.ProductID != "coins.100" || p.Quantity != 2 || p.PurchaseTime != models.Time(1700000000000) {
		t.Fatalf("unexpected purchase: %+v", p)
	}
	if err := client.Acknowledge(ctx, ""); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if err := client.Consume(ctx); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !stub.called("/tokens/otp:acknowledge") || !stub.called("/tokens/otp:consume") {
		t.Fatalf("expected acknowledge and consume calls, got %v", stub.calls)
	}
}

func TestSubscriptionClientSurfacesAPIErrors(t *testing.T) {
	svc, _ := newTestService(t)
	client := NewSubscriptionClient(svc, "com.example.app", "missing", "tok")
	if _, err := client.Get(context.Background()); err == nil {
		t.Fatalf("expected error for unknown subscription")
	}
}

func TestFetcher(t *testing.T) {
	svc, _ := newTestService(t)
	p, err := NewFetcher(svc).FetchSubscription(context.Background(), "com.example.app", "pro.monthly", "tok")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.OrderID != "GPA.1234" {
		t.Fatalf("unexpected order id %q", p.OrderID)
	}
}
