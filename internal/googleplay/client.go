package googleplay

import (
	"context"
	"fmt"

	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"

	"iap-gateway/internal/models"
)

// NewService creates an androidpublisher client. An empty credentialsFile
// falls back to application default credentials unless opts override auth.
func NewService(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*androidpublisher.Service, error) {
	if credentialsFile != "" {
		opts = append([]option.ClientOption{option.WithCredentialsFile(credentialsFile)}, opts...)
	}
	svc, err := androidpublisher.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create androidpublisher service: %w", err)
	}
	return svc, nil
}

// SubscriptionPurchase is the subset of purchases.subscriptions the
// gateway reads.
type SubscriptionPurchase struct {
	OrderID              string
	StartTime            models.Time
	ExpiryTime           models.Time
	AutoRenewing         bool
	CancelReason         int64
	PaymentState         *int64
	AcknowledgementState int64
	LinkedPurchaseToken  string
	PriceAmountMicros    int64
	PriceCurrencyCode    string
}

// IsAcknowledged reports whether the purchase has been acknowledged.
func (p *SubscriptionPurchase) IsAcknowledged() bool {
	return p.AcknowledgementState == 1
}

// SubscriptionClient operates on one subscription purchase.
type SubscriptionClient struct {
	svc            *androidpublisher.Service
	packageName    string
	subscriptionID string
	purchaseToken  string
}

func NewSubscriptionClient(svc *androidpublisher.Service, packageName, subscriptionID, purchaseToken string) *SubscriptionClient {
	return &SubscriptionClient{
		svc:            svc,
		packageName:    packageName,
		subscriptionID: subscriptionID,
		purchaseToken:  purchaseToken,
	}
}

func (c *SubscriptionClient) Get(ctx context.Context) (*SubscriptionPurchase, error) {
	p, err := c.svc.Purchases.Subscriptions.Get(c.packageName, c.subscriptionID, c.purchaseToken).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription purchase: %w", err)
	}
	return &SubscriptionPurchase{
		OrderID:              p.OrderId,
		StartTime:            models.NewTime(p.StartTimeMillis),
		ExpiryTime:           models.NewTime(p.ExpiryTimeMillis),
		AutoRenewing:         p.AutoRenewing,
		CancelReason:         p.CancelReason,
		PaymentState:         p.PaymentState,
		AcknowledgementState: p.AcknowledgementState,
		LinkedPurchaseToken:  p.LinkedPurchaseToken,
		PriceAmountMicros:    p.PriceAmountMicros,
		PriceCurrencyCode:    p.PriceCurrencyCode,
	}, nil
}

func (c *SubscriptionClient) Acknowledge(ctx context.Context, developerPayload string) error {
	req := &androidpublisher.SubscriptionPurchasesAcknowledgeRequest{DeveloperPayload: developerPayload}
	if err := c.svc.Purchases.Subscriptions.Acknowledge(c.packageName, c.subscriptionID, c.purchaseToken, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to acknowledge subscription: %w", err)
	}
	return nil
}

func (c *SubscriptionClient) Cancel(ctx context.Context) error {
	if err := c.svc.Purchases.Subscriptions.Cancel(c.packageName, c.subscriptionID, c.purchaseToken).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}

// Defer moves the expiry from expected to desired and returns the new expiry.
func (c *SubscriptionClient) Defer(ctx context.Context, expected, desired models.Time) (models.Time, error) {
	req := &androidpublisher.SubscriptionPurchasesDeferRequest{
		DeferralInfo: &androidpublisher.SubscriptionDeferralInfo{
			ExpectedExpiryTimeMillis: expected.Milliseconds(),
			DesiredExpiryTimeMillis:  desired.Milliseconds(),
		},
	}
	resp, err := c.svc.Purchases.Subscriptions.Defer(c.packageName, c.subscriptionID, c.purchaseToken, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to defer subscription: %w", err)
	}
	return models.NewTime(resp.NewExpiryTimeMillis), nil
}

func (c *SubscriptionClient) Refund(ctx context.Context) error {
	if err := c.svc.Purchases.Subscriptions.Refund(c.packageName, c.subscriptionID, c.purchaseToken).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to refund subscription: %w", err)
	}
	return nil
}

func (c *SubscriptionClient) Revoke(ctx context.Context) error {
	if err := c.svc.Purchases.Subscriptions.Revoke(c.packageName, c.subscriptionID, c.purchaseToken).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to revoke subscription: %w", err)
	}
	return nil
}

// ProductPurchase is the subset of purchases.products the gateway reads.
type ProductPurchase struct {
	OrderID              string
	ProductID            string
	PurchaseTime         models.Time
	PurchaseState        int64
	ConsumptionState     int64
	AcknowledgementState int64
	Quantity             int64
}

// ProductClient operates on one in-app product purchase.
type ProductClient struct {
	svc           *androidpublisher.Service
	packageName   string
	productID     string
	purchaseToken string
}

func NewProductClient(svc *androidpublisher.Service, packageName, productID, purchaseToken string) *ProductClient {
	return &ProductClient{
		svc:           svc,
		packageName:   packageName,
		productID:     productID,
		purchaseToken: purchaseToken,
	}
}

func (c *ProductClient) Get(ctx context.Context) (*ProductPurchase, error) {
	p, err := c.svc.Purchases.Products.Get(c.packageName, c.productID, c.purchaseToken).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get product purchase: %w", err)
	}
	return &ProductPurchase{
		OrderID:              p.OrderId,
		ProductID:            p.ProductId,
		PurchaseTime:         models.NewTime(p.PurchaseTimeMillis),
		PurchaseState:        p.PurchaseState,
		ConsumptionState:     p.ConsumptionState,
		AcknowledgementState: p.AcknowledgementState,
		Quantity:             p.Quantity,
	}, nil
}

func (c *ProductClient) Acknowledge(ctx context.Context, developerPayload string) error {
	req := &androidpublisher.ProductPurchasesAcknowledgeRequest{DeveloperPayload: developerPayload}
	if err := c.svc.Purchases.Products.Acknowledge(c.packageName, c.productID, c.purchaseToken, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to acknowledge product: %w", err)
	}
	return nil
}

func (c *ProductClient) Consume(ctx context.Context) error {
	if err := c.svc.Purchases.Products.Consume(c.packageName, c.productID, c.purchaseToken).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to consume product: %w", err)
	}
	return nil
}

// Fetcher resolves subscription purchases by package, subscription and token.
type Fetcher struct {
	svc *androidpublisher.Service
}

func NewFetcher(svc *androidpublisher.Service) *Fetcher {
	return &Fetcher{svc: svc}
}

func (f *Fetcher) FetchSubscription(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*SubscriptionPurchase, error) {
	return NewSubscriptionClient(f.svc, packageName, subscriptionID, purchaseToken).Get(ctx)
}
