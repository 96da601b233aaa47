package notifications

import (
	"context"
	"fmt"

	"iap-gateway/internal/appstore"
	"iap-gateway/internal/googleplay"
	"iap-gateway/internal/jws"
	"iap-gateway/internal/models"
)

// Decoder builds ServerNotifications from raw webhook bodies.
type Decoder struct {
	verifier jws.Verifier
	fetcher  SubscriptionFetcher
}

// NewDecoder creates a decoder. verifier checks V2 signed payloads; fetcher
// may be nil when Google Play snapshots are not needed.
func NewDecoder(verifier jws.Verifier, fetcher SubscriptionFetcher) *Decoder {
	return &Decoder{verifier: verifier, fetcher: fetcher}
}

// DecodeNotification decodes raw for provider. Nothing is returned unless
// the whole body decoded and, for signed payloads, verified.
func (d *Decoder) DecodeNotification(ctx context.Context, provider Provider, raw []byte) (ServerNotification, error) {
	switch provider {
	case ProviderAppStore:
		if models.HasSignedPayload(raw) {
			n, err := d.decodeAppStoreV2(ctx, raw)
			if err != nil {
				return nil, err
			}
			return n, nil
		}
		n, err := ParseAppStoreNotification(raw)
		if err != nil {
			return nil, err
		}
		return n, nil
	case ProviderGooglePlay:
		n, err := googleplay.ParsePushBody(raw)
		if err != nil {
			return nil, err
		}
		return NewGooglePlayNotification(n, d.fetcher), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
}

func (d *Decoder) decodeAppStoreV2(ctx context.Context, raw []byte) (*AppStoreV2Notification, error) {
	attrs, err := models.DecodeAttributes(raw)
	if err != nil {
		return nil, models.NewDecodeError("app store v2 notification", err)
	}
	signed, ok := attrs.String("signedPayload")
	if !ok {
		return nil, models.MissingKeyError("app store v2 notification", "signedPayload")
	}

	token, err := jws.Parse(signed)
	if err != nil {
		return nil, err
	}
	if d.verifier == nil {
		return nil, fmt.Errorf("%w: no verifier configured", jws.ErrSignatureRejected)
	}
	if err := d.verifier.Verify(ctx, token); err != nil {
		return nil, err
	}

	payload, err := appstore.NewDecodedPayload(token)
	if err != nil {
		return nil, err
	}
	return NewAppStoreV2Notification(payload), nil
}
