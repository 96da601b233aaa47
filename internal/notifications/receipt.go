package notifications

import "iap-gateway/internal/appstore"

// SubscriptionFromReceipt picks the transaction with the latest expiry from
// a verifyReceipt response.
func SubscriptionFromReceipt(resp *appstore.ReceiptResponse) (Subscription, error) {
	var (
		best  appstore.LatestReceiptInfo
		found bool
	)
	for _, info := range resp.LatestReceiptInfo() {
		if info.ExpiresDate == nil {
			continue
		}
		if !found || info.ExpiresDate.After(*best.ExpiresDate) {
			best = info
			found = true
		}
	}
	if !found {
		return Subscription{}, ErrNoSubscription
	}
	return Subscription{
		ExpiryTime:       *best.ExpiresDate,
		ItemID:           best.ProductID,
		Provider:         ProviderAppStore,
		UniqueIdentifier: best.OriginalTransactionID,
		Representation:   best,
	}, nil
}
