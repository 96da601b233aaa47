// Package appstore holds the App Store specific decoders: signed transaction
// and renewal claims, the verifyReceipt response model and its client.
package appstore

import (
	"iap-gateway/internal/jws"
	"iap-gateway/internal/models"
)

const (
	EnvironmentSandbox    = "Sandbox"
	EnvironmentProduction = "Production"

	OwnershipTypeFamilyShared = "FAMILY_SHARED"
	OwnershipTypePurchased    = "PURCHASED"

	TypeAutoRenewable           = "Auto-Renewable Subscription"
	TypeNonRenewingSubscription = "Non-Renewing Subscription"
	TypeNonConsumable           = "Non-Consumable"
	TypeConsumable              = "Consumable"

	OfferTypeIntroductory = 1
	OfferTypePromotional  = 2
	OfferTypeOfferCode    = 3

	RevocationReasonOther    = 0
	RevocationReasonAppIssue = 1

	AutoRenewStatusOff = 0
	AutoRenewStatusOn  = 1

	ExpirationIntentCancel               = 1
	ExpirationIntentBillingError         = 2
	ExpirationIntentPriceIncreaseConsent = 3
	ExpirationIntentProductNotAvailable  = 4
	ExpirationIntentOther                = 5

	PriceIncreaseStatusNotResponded = 0
	PriceIncreaseStatusConsented    = 1
)

// TransactionClaims is a read-only view over a signedTransactionInfo token.
type TransactionClaims struct {
	token *jws.Token
	attrs models.Attributes
}

// NewTransactionClaims wraps an already parsed token. transactionId and
// type must be present.
func NewTransactionClaims(token *jws.Token) (*TransactionClaims, error) {
	const source = "signedTransactionInfo"

	attrs := token.Attributes()
	for _, key := range []string{"transactionId", "type"} {
		if v, ok := attrs.String(key); !ok || v == "" {
			return nil, models.MissingKeyError(source, key)
		}
	}
	return &TransactionClaims{token: token, attrs: attrs}, nil
}

// ParseTransactionClaims parses a signedTransactionInfo token without verifying it.
func ParseTransactionClaims(raw string) (*TransactionClaims, error) {
	token, err := jws.Parse(raw)
	if err != nil {
		return nil, err
	}
	return NewTransactionClaims(token)
}

func (c *TransactionClaims) Token() *jws.Token { return c.token }

// TransactionID is guaranteed by NewTransactionClaims.
func (c *TransactionClaims) TransactionID() string {
	v, _ := c.attrs.String("transactionId")
	return v
}

// Type is guaranteed by NewTransactionClaims.
func (c *TransactionClaims) Type() string {
	v, _ := c.attrs.String("type")
	return v
}

func (c *TransactionClaims) OriginalTransactionID() (string, bool) {
	return c.attrs.String("originalTransactionId")
}

func (c *TransactionClaims) ProductID() (string, bool) {
	return c.attrs.String("productId")
}

func (c *TransactionClaims) BundleID() (string, bool) {
	return c.attrs.String("bundleId")
}

func (c *TransactionClaims) AppAccountToken() (string, bool) {
	return c.attrs.String("appAccountToken")
}

func (c *TransactionClaims) Environment() (string, bool) {
	return c.attrs.String("environment")
}

func (c *TransactionClaims) InAppOwnershipType() (string, bool) {
	return c.attrs.String("inAppOwnershipType")
}

func (c *TransactionClaims) SubscriptionGroupIdentifier() (string, bool) {
	return c.attrs.String("subscriptionGroupIdentifier")
}

func (c *TransactionClaims) WebOrderLineItemID() (string, bool) {
	return c.attrs.String("webOrderLineItemId")
}

func (c *TransactionClaims) OfferIdentifier() (string, bool) {
	return c.attrs.String("offerIdentifier")
}

func (c *TransactionClaims) OfferType() (int, bool) {
	return c.attrs.Int("offerType")
}

func (c *TransactionClaims) Quantity() (int, bool) {
	return c.attrs.Int("quantity")
}

func (c *TransactionClaims) IsUpgraded() (bool, bool) {
	return c.attrs.Bool("isUpgraded")
}

func (c *TransactionClaims) RevocationReason() (int, bool) {
	return c.attrs.Int("revocationReason")
}

func (c *TransactionClaims) PurchaseDate() (models.Time, bool) {
	return c.attrs.Time("purchaseDate")
}

func (c *TransactionClaims) OriginalPurchaseDate() (models.Time, bool) {
	return c.attrs.Time("originalPurchaseDate")
}

func (c *TransactionClaims) ExpiresDate() (models.Time, bool) {
	return c.attrs.Time("expiresDate")
}

func (c *TransactionClaims) RevocationDate() (models.Time, bool) {
	return c.attrs.Time("revocationDate")
}

func (c *TransactionClaims) SignedDate() (models.Time, bool) {
	return c.attrs.Time("signedDate")
}

// IsRevoked reports whether Apple refunded or revoked the transaction.
func (c *TransactionClaims) IsRevoked() bool {
	_, ok := c.RevocationDate()
	return ok
}

// RenewalClaims is a read-only view over a signedRenewalInfo token.
type RenewalClaims struct {
	token *jws.Token
	attrs models.Attributes
}

func NewRenewalClaims(token *jws.Token) *RenewalClaims {
	return &RenewalClaims{token: token, attrs: token.Attributes()}
}

// ParseRenewalClaims parses a signedRenewalInfo token without verifying it.
func ParseRenewalClaims(raw string) (*RenewalClaims, error) {
	token, err := jws.Parse(raw)
	if err != nil {
		return nil, err
	}
	return NewRenewalClaims(token), nil
}

func (c *RenewalClaims) Token() *jws.Token { return c.token }

func (c *RenewalClaims) AutoRenewProductID() (string, bool) {
	return c.attrs.String("autoRenewProductId")
}

func (c *RenewalClaims) AutoRenewStatus() (int, bool) {
	return c.attrs.Int("autoRenewStatus")
}

// IsAutoRenewing is false when the status is absent.
func (c *RenewalClaims) IsAutoRenewing() bool {
	status, ok := c.AutoRenewStatus()
	return ok && status == AutoRenewStatusOn
}

func (c *RenewalClaims) Environment() (string, bool) {
	return c.attrs.String("environment")
}

func (c *RenewalClaims) ExpirationIntent() (int, bool) {
	return c.attrs.Int("expirationIntent")
}

func (c *RenewalClaims) GracePeriodExpiresDate() (models.Time, bool) {
	return c.attrs.Time("gracePeriodExpiresDate")
}

func (c *RenewalClaims) IsInBillingRetryPeriod() (bool, bool) {
	return c.attrs.Bool("isInBillingRetryPeriod")
}

func (c *RenewalClaims) OfferIdentifier() (string, bool) {
	return c.attrs.String("offerIdentifier")
}

func (c *RenewalClaims) OfferType() (int, bool) {
	return c.attrs.Int("offerType")
}

func (c *RenewalClaims) OriginalTransactionID() (string, bool) {
	return c.attrs.String("originalTransactionId")
}

func (c *RenewalClaims) PriceIncreaseStatus() (int, bool) {
	return c.attrs.Int("priceIncreaseStatus")
}

func (c *RenewalClaims) ProductID() (string, bool) {
	return c.attrs.String("productId")
}

func (c *RenewalClaims) RecentSubscriptionStartDate() (models.Time, bool) {
	return c.attrs.Time("recentSubscriptionStartDate")
}

func (c *RenewalClaims) RenewalDate() (models.Time, bool) {
	return c.attrs.Time("renewalDate")
}

func (c *RenewalClaims) SignedDate() (models.Time, bool) {
	return c.attrs.Time("signedDate")
}
