package appstore

import (
	"iap-gateway/internal/jws"
	"iap-gateway/internal/models"
)

// NotificationTypeTest is the V2 notification type Apple sends from the
// "Request a Test Notification" endpoint.
const NotificationTypeTest = "TEST"

// DecodedPayload is the claims view over a V2 signedPayload. Nested
// transaction and renewal tokens are parsed at construction; their trust is
// inherited from the outer token's verification.
type DecodedPayload struct {
	token       *jws.Token
	attrs       models.Attributes
	data        models.Attributes
	transaction *TransactionClaims
	renewal     *RenewalClaims
}

// NewDecodedPayload builds the view over a verified outer token.
func NewDecodedPayload(token *jws.Token) (*DecodedPayload, error) {
	attrs := token.Attributes()
	if _, ok := attrs.String("notificationType"); !ok {
		return nil, models.MissingKeyError("signedPayload", "notificationType")
	}

	p := &DecodedPayload{token: token, attrs: attrs}

	// summary notifications carry "summary" instead of "data"
	data, ok := attrs.Map("data")
	if !ok {
		return p, nil
	}
	p.data = data

	if raw, ok := data.String("signedTransactionInfo"); ok {
		claims, err := ParseTransactionClaims(raw)
		if err != nil {
			return nil, err
		}
		p.transaction = claims
	}
	if raw, ok := data.String("signedRenewalInfo"); ok {
		claims, err := ParseRenewalClaims(raw)
		if err != nil {
			return nil, err
		}
		p.renewal = claims
	}
	return p, nil
}

func (p *DecodedPayload) Token() *jws.Token { return p.token }

// NotificationType is guaranteed by NewDecodedPayload.
func (p *DecodedPayload) NotificationType() string {
	v, _ := p.attrs.String("notificationType")
	return v
}

func (p *DecodedPayload) Subtype() (string, bool) {
	return p.attrs.String("subtype")
}

func (p *DecodedPayload) NotificationUUID() (string, bool) {
	return p.attrs.String("notificationUUID")
}

func (p *DecodedPayload) Version() (string, bool) {
	return p.attrs.String("version")
}

func (p *DecodedPayload) SignedDate() (models.Time, bool) {
	return p.attrs.Time("signedDate")
}

func (p *DecodedPayload) IsTest() bool {
	return p.NotificationType() == NotificationTypeTest
}

// BundleID reads data.bundleId, falling back to the summary block.
func (p *DecodedPayload) BundleID() (string, bool) {
	if v, ok := p.data.String("bundleId"); ok {
		return v, true
	}
	if summary, ok := p.attrs.Map("summary"); ok {
		return summary.String("bundleId")
	}
	return "", false
}

func (p *DecodedPayload) BundleVersion() (string, bool) {
	return p.data.String("bundleVersion")
}

func (p *DecodedPayload) Environment() (string, bool) {
	return p.data.String("environment")
}

func (p *DecodedPayload) AppAppleID() (int64, bool) {
	return p.data.Int64("appAppleId")
}

// Status is the subscription status carried in data (1 active, 2 expired, ...).
func (p *DecodedPayload) Status() (int, bool) {
	return p.data.Int("status")
}

func (p *DecodedPayload) Summary() (models.Attributes, bool) {
	return p.attrs.Map("summary")
}

func (p *DecodedPayload) TransactionInfo() (*TransactionClaims, bool) {
	return p.transaction, p.transaction != nil
}

func (p *DecodedPayload) RenewalInfo() (*RenewalClaims, bool) {
	return p.renewal, p.renewal != nil
}

// Claims returns a copy of the outer claims.
func (p *DecodedPayload) Claims() map[string]any {
	return p.attrs.Clone()
}
