package appstore

import (
	"fmt"

	"iap-gateway/internal/models"
)

// Environment is the verifyReceipt environment a receipt was validated in.
type Environment string

const (
	Sandbox    Environment = "Sandbox"
	Production Environment = "Production"
)

// ReceiptResponse is a decoded verifyReceipt response. It is built once and
// never modified, so it can be shared between goroutines.
type ReceiptResponse struct {
	status             Status
	environment        Environment
	isRetryable        *bool
	latestReceipt      *string
	latestReceiptInfo  []LatestReceiptInfo
	pendingRenewalInfo []PendingRenewal
	receipt            *Receipt
	raw                models.Attributes
}

// LatestReceiptInfo is one in-app purchase transaction.
type LatestReceiptInfo struct {
	OriginalTransactionID string
	TransactionID         string
	ProductID             string

	Quantity                    *int64
	WebOrderLineItemID          *string
	AppAccountToken             *string
	PurchaseDate                *models.Time
	OriginalPurchaseDate        *models.Time
	ExpiresDate                 *models.Time
	CancellationDate            *models.Time
	CancellationReason          *int64
	IsTrialPeriod               *bool
	IsInIntroOfferPeriod        *bool
	IsUpgraded                  *bool
	InAppOwnershipType          *string
	OfferCodeRefName            *string
	PromotionalOfferID          *string
	SubscriptionGroupIdentifier *string
}

// Cancellation describes a refunded or revoked transaction.
type Cancellation struct {
	Date   models.Time
	Reason *int64
}

// Cancellation returns the cancellation details when Apple cancelled the transaction.
func (i LatestReceiptInfo) Cancellation() (Cancellation, bool) {
	if i.CancellationDate == nil {
		return Cancellation{}, false
	}
	return Cancellation{Date: *i.CancellationDate, Reason: i.CancellationReason}, true
}

// PendingRenewal is one pending_renewal_info entry.
type PendingRenewal struct {
	AutoRenewProductID    string
	OriginalTransactionID string
	ProductID             string

	AutoRenewStatus        *bool
	ExpirationIntent       *int64
	GracePeriodExpiresDate *models.Time
	IsInBillingRetryPeriod *bool
	OfferCodeRefName       *string
	PriceConsentStatus     *int64
	PromotionalOfferID     *string
}

// Receipt is the decoded receipt block.
type Receipt struct {
	AdamID                     *int64
	AppItemID                  *int64
	ApplicationVersion         *string
	BundleID                   *string
	DownloadID                 *int64
	InApp                      []LatestReceiptInfo
	OriginalPurchaseDate       *models.Time
	ReceiptCreationDate        *models.Time
	ReceiptType                *string
	RequestDate                *models.Time
	VersionExternalIdentifier  *int64
	OriginalApplicationVersion *string
	ExpirationDate             *models.Time
	PreorderDate               *models.Time
}

// ParseReceiptResponse decodes a verifyReceipt body.
func ParseReceiptResponse(body []byte) (*ReceiptResponse, error) {
	attrs, err := models.DecodeAttributes(body)
	if err != nil {
		return nil, models.NewDecodeError("receipt response", err)
	}
	return NewReceiptResponse(attrs)
}

// NewReceiptResponse builds a response from an already decoded object. The
// legacy notification's unified_receipt block has the same shape.
func NewReceiptResponse(attrs models.Attributes) (*ReceiptResponse, error) {
	code, ok := attrs.Int("status")
	if !ok {
		return nil, models.MissingKeyError("receipt response", "status")
	}

	r := &ReceiptResponse{
		status:      Status(code),
		environment: Production,
		raw:         attrs,
	}
	if env, ok := attrs.String("environment"); ok && env == string(Sandbox) {
		r.environment = Sandbox
	}
	if v, ok := attrs.Bool("is-retryable"); ok {
		r.isRetryable = &v
	}
	if v, ok := attrs.String("latest_receipt"); ok {
		r.latestReceipt = &v
	}

	var err error
	if r.latestReceiptInfo, err = parseReceiptInfoList(attrs, "latest_receipt_info"); err != nil {
		return nil, err
	}
	if r.pendingRenewalInfo, err = parsePendingRenewals(attrs); err != nil {
		return nil, err
	}
	if block, ok := attrs.Map("receipt"); ok {
		receipt, err := parseReceipt(block)
		if err != nil {
			return nil, err
		}
		r.receipt = receipt
	}
	return r, nil
}

func (r *ReceiptResponse) StatusCode() int { return int(r.status) }

func (r *ReceiptResponse) Status() Status { return r.status }

// IsValid is true only for status 0.
func (r *ReceiptResponse) IsValid() bool { return r.status.IsValid() }

func (r *ReceiptResponse) Environment() Environment { return r.environment }

func (r *ReceiptResponse) IsRetryable() (bool, bool) {
	if r.isRetryable == nil {
		return false, false
	}
	return *r.isRetryable, true
}

func (r *ReceiptResponse) LatestReceipt() (string, bool) {
	if r.latestReceipt == nil {
		return "", false
	}
	return *r.latestReceipt, true
}

// LatestReceiptInfo returns the transactions in the order Apple sent them.
func (r *ReceiptResponse) LatestReceiptInfo() []LatestReceiptInfo {
	return cloneInfos(r.latestReceiptInfo)
}

func (r *ReceiptResponse) PendingRenewalInfo() []PendingRenewal {
	return append([]PendingRenewal(nil), r.pendingRenewalInfo...)
}

// Receipt returns a copy of the receipt block.
func (r *ReceiptResponse) Receipt() (Receipt, bool) {
	if r.receipt == nil {
		return Receipt{}, false
	}
	return r.receipt.clone(), true
}

// RawBody returns a copy of the decoded body.
func (r *ReceiptResponse) RawBody() models.Attributes {
	return r.raw.Clone()
}

func parseReceiptInfoList(attrs models.Attributes, key string) ([]LatestReceiptInfo, error) {
	if !attrs.Has(key) {
		return nil, nil
	}
	items, ok := attrs.Slice(key)
	if !ok {
		return nil, models.NewDecodeError(key, fmt.Errorf("expected array"))
	}

	out := make([]LatestReceiptInfo, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, models.NewDecodeError(fmt.Sprintf("%s[%d]", key, i), fmt.Errorf("expected object"))
		}
		info, err := ParseLatestReceiptInfo(models.Attributes(m))
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, nil
}

// ParseLatestReceiptInfo decodes one transaction record.
func ParseLatestReceiptInfo(a models.Attributes) (LatestReceiptInfo, error) {
	var info LatestReceiptInfo
	var err error
	if info.OriginalTransactionID, err = requireString(a, "latest_receipt_info", "original_transaction_id"); err != nil {
		return info, err
	}
	if info.TransactionID, err = requireString(a, "latest_receipt_info", "transaction_id"); err != nil {
		return info, err
	}
	if info.ProductID, err = requireString(a, "latest_receipt_info", "product_id"); err != nil {
		return info, err
	}

	info.Quantity = optInt64(a, "quantity")
	info.WebOrderLineItemID = optString(a, "web_order_line_item_id")
	info.AppAccountToken = optString(a, "app_account_token")
	info.PurchaseDate = optTime(a, "purchase_date_ms")
	info.OriginalPurchaseDate = optTime(a, "original_purchase_date_ms")
	info.ExpiresDate = optTime(a, "expires_date_ms")
	info.CancellationDate = optTime(a, "cancellation_date_ms")
	info.CancellationReason = optInt64(a, "cancellation_reason")
	info.IsTrialPeriod = optBool(a, "is_trial_period")
	info.IsInIntroOfferPeriod = optBool(a, "is_in_intro_offer_period")
	info.IsUpgraded = optBool(a, "is_upgraded")
	info.InAppOwnershipType = optString(a, "in_app_ownership_type")
	info.OfferCodeRefName = optString(a, "offer_code_ref_name")
	info.PromotionalOfferID = optString(a, "promotional_offer_id")
	info.SubscriptionGroupIdentifier = optString(a, "subscription_group_identifier")
	return info, nil
}

func parsePendingRenewals(attrs models.Attributes) ([]PendingRenewal, error) {
	if !attrs.Has("pending_renewal_info") {
		return nil, nil
	}
	items, ok := attrs.Slice("pending_renewal_info")
	if !ok {
		return nil, models.NewDecodeError("pending_renewal_info", fmt.Errorf("expected array"))
	}

	out := make([]PendingRenewal, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, models.NewDecodeError(fmt.Sprintf("pending_renewal_info[%d]", i), fmt.Errorf("expected object"))
		}
		a := models.Attributes(m)

		var p PendingRenewal
		var err error
		if p.AutoRenewProductID, err = requireString(a, "pending_renewal_info", "auto_renew_product_id"); err != nil {
			return nil, err
		}
		if p.OriginalTransactionID, err = requireString(a, "pending_renewal_info", "original_transaction_id"); err != nil {
			return nil, err
		}
		if p.ProductID, err = requireString(a, "pending_renewal_info", "product_id"); err != nil {
			return nil, err
		}
		p.AutoRenewStatus = optBool(a, "auto_renew_status")
		p.ExpirationIntent = optInt64(a, "expiration_intent")
		p.GracePeriodExpiresDate = optTime(a, "grace_period_expires_date_ms")
		p.IsInBillingRetryPeriod = optBool(a, "is_in_billing_retry_period")
		p.OfferCodeRefName = optString(a, "offer_code_ref_name")
		p.PriceConsentStatus = optInt64(a, "price_consent_status")
		p.PromotionalOfferID = optString(a, "promotional_offer_id")
		out = append(out, p)
	}
	return out, nil
}

func parseReceipt(a models.Attributes) (*Receipt, error) {
	inApp, err := parseReceiptInfoList(a, "in_app")
	if err != nil {
		return nil, err
	}
	return &Receipt{
		AdamID:                     optInt64(a, "adam_id"),
		AppItemID:                  optInt64(a, "app_item_id"),
		ApplicationVersion:         optString(a, "application_version"),
		BundleID:                   optString(a, "bundle_id"),
		DownloadID:                 optInt64(a, "download_id"),
		InApp:                      inApp,
		OriginalPurchaseDate:       optTime(a, "original_purchase_date_ms"),
		ReceiptCreationDate:        optTime(a, "receipt_creation_date_ms"),
		ReceiptType:                optString(a, "receipt_type"),
		RequestDate:                optTime(a, "request_date_ms"),
		VersionExternalIdentifier:  optInt64(a, "version_external_identifier"),
		OriginalApplicationVersion: optString(a, "original_application_version"),
		ExpirationDate:             optTime(a, "expiration_date_ms"),
		PreorderDate:               optTime(a, "preorder_date_ms"),
	}, nil
}

func requireString(a models.Attributes, source, key string) (string, error) {
	v, ok := a.String(key)
	if !ok {
		return "", models.MissingKeyError(source, key)
	}
	return v, nil
}

func optString(a models.Attributes, key string) *string {
	if v, ok := a.String(key); ok {
		return &v
	}
	return nil
}

func optInt64(a models.Attributes, key string) *int64 {
	if v, ok := a.Int64(key); ok {
		return &v
	}
	return nil
}

func optBool(a models.Attributes, key string) *bool {
	if v, ok := a.Bool(key); ok {
		return &v
	}
	return nil
}

func optTime(a models.Attributes, key string) *models.Time {
	if v, ok := a.Time(key); ok {
		return &v
	}
	return nil
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (i LatestReceiptInfo) clone() LatestReceiptInfo {
	c := i
	c.Quantity = clonePtr(i.Quantity)
	c.WebOrderLineItemID = clonePtr(i.WebOrderLineItemID)
	c.AppAccountToken = clonePtr(i.AppAccountToken)
	c.PurchaseDate = clonePtr(i.PurchaseDate)
	c.OriginalPurchaseDate = clonePtr(i.OriginalPurchaseDate)
	c.ExpiresDate = clonePtr(i.ExpiresDate)
	c.CancellationDate = clonePtr(i.CancellationDate)
	c.CancellationReason = clonePtr(i.CancellationReason)
	c.IsTrialPeriod = clonePtr(i.IsTrialPeriod)
	c.IsInIntroOfferPeriod = clonePtr(i.IsInIntroOfferPeriod)
	c.IsUpgraded = clonePtr(i.IsUpgraded)
	c.InAppOwnershipType = clonePtr(i.InAppOwnershipType)
	c.OfferCodeRefName = clonePtr(i.OfferCodeRefName)
	c.PromotionalOfferID = clonePtr(i.PromotionalOfferID)
	c.SubscriptionGroupIdentifier = clonePtr(i.SubscriptionGroupIdentifier)
	return c
}

func cloneInfos(infos []LatestReceiptInfo) []LatestReceiptInfo {
	if infos == nil {
		return nil
	}
	out := make([]LatestReceiptInfo, len(infos))
	for i, info := range infos {
		out[i] = info.clone()
	}
	return out
}

func (r *Receipt) clone() Receipt {
	return Receipt{
		AdamID:                     clonePtr(r.AdamID),
		AppItemID:                  clonePtr(r.AppItemID),
		ApplicationVersion:         clonePtr(r.ApplicationVersion),
		BundleID:                   clonePtr(r.BundleID),
		DownloadID:                 clonePtr(r.DownloadID),
		InApp:                      cloneInfos(r.InApp),
		OriginalPurchaseDate:       clonePtr(r.OriginalPurchaseDate),
		ReceiptCreationDate:        clonePtr(r.ReceiptCreationDate),
		ReceiptType:                clonePtr(r.ReceiptType),
		RequestDate:                clonePtr(r.RequestDate),
		VersionExternalIdentifier:  clonePtr(r.VersionExternalIdentifier),
		OriginalApplicationVersion: clonePtr(r.OriginalApplicationVersion),
		ExpirationDate:             clonePtr(r.ExpirationDate),
		PreorderDate:               clonePtr(r.PreorderDate),
	}
}
