package googleplay

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"iap-gateway/internal/models"
)

// PayloadKind tells which payload a developer notification carries.
type PayloadKind string

const (
	PayloadSubscription   PayloadKind = "subscriptionNotification"
	PayloadOneTimeProduct PayloadKind = "oneTimeProductNotification"
	PayloadTest           PayloadKind = "testNotification"
)

// Payload is implemented by the three developer notification payloads.
type Payload interface {
	Kind() PayloadKind
}

type SubscriptionNotification struct {
	Version          string
	NotificationType SubscriptionNotificationType
	PurchaseToken    string
	SubscriptionID   string
}

func (SubscriptionNotification) Kind() PayloadKind { return PayloadSubscription }

type OneTimeProductNotification struct {
	Version          string
	NotificationType OneTimeProductNotificationType
	PurchaseToken    string
	SKU              string
}

func (OneTimeProductNotification) Kind() PayloadKind { return PayloadOneTimeProduct }

type TestNotification struct {
	Version string
}

func (TestNotification) Kind() PayloadKind { return PayloadTest }

// DeveloperNotification is the decoded data field of an RTDN push message.
type DeveloperNotification struct {
	Version         string
	PackageName     string
	EventTimeMillis models.Time
	Payload         Payload

	// Pub/Sub delivery metadata
	MessageID    string
	PublishTime  string
	Subscription string

	raw models.Attributes
}

// IsTest reports whether the payload is a test notification.
func (n *DeveloperNotification) IsTest() bool {
	_, ok := n.Payload.(TestNotification)
	return ok
}

// SubscriptionNotification returns the payload when it is a subscription notification.
func (n *DeveloperNotification) SubscriptionNotification() (SubscriptionNotification, bool) {
	p, ok := n.Payload.(SubscriptionNotification)
	return p, ok
}

// OneTimeProductNotification returns the payload when it is a one-time product notification.
func (n *DeveloperNotification) OneTimeProductNotification() (OneTimeProductNotification, bool) {
	p, ok := n.Payload.(OneTimeProductNotification)
	return p, ok
}

// PurchaseToken is empty for test notifications.
func (n *DeveloperNotification) PurchaseToken() string {
	switch p := n.Payload.(type) {
	case SubscriptionNotification:
		return p.PurchaseToken
	case OneTimeProductNotification:
		return p.PurchaseToken
	default:
		return ""
	}
}

// Raw returns a copy of the decoded data object.
func (n *DeveloperNotification) Raw() map[string]any {
	return n.raw.Clone()
}

// ParsePushBody decodes a Pub/Sub push request body.
func ParsePushBody(body []byte) (*DeveloperNotification, error) {
	var push models.PubSubPushBody
	if err := json.Unmarshal(body, &push); err != nil {
		return nil, models.NewDecodeError("pubsub push body", err)
	}
	if push.Message.Data == "" {
		return nil, models.MissingKeyError("pubsub push body", "message.data")
	}

	n, err := ParseData(push.Message.Data)
	if err != nil {
		return nil, err
	}
	n.MessageID = push.Message.MessageID
	n.PublishTime = push.Message.PublishTime
	n.Subscription = push.Subscription
	return n, nil
}

// ParseData decodes the base64 data field of a push message.
func ParseData(data string) (*DeveloperNotification, error) {
	decoded, err := base64.StdEncoding.DecodeString(padBase64(data))
	if err != nil {
		return nil, models.NewDecodeError("developer notification", fmt.Errorf("invalid base64: %w", err))
	}
	attrs, err := models.DecodeAttributes(decoded)
	if err != nil {
		return nil, models.NewDecodeError("developer notification", err)
	}
	return NewDeveloperNotification(attrs)
}

// NewDeveloperNotification builds a notification from its decoded JSON object.
func NewDeveloperNotification(attrs models.Attributes) (*DeveloperNotification, error) {
	const source = "developer notification"

	n := &DeveloperNotification{raw: attrs}
	var ok bool
	if n.Version, ok = attrs.String("version"); !ok {
		return nil, models.MissingKeyError(source, "version")
	}
	if n.PackageName, ok = attrs.String("packageName"); !ok {
		return nil, models.MissingKeyError(source, "packageName")
	}
	if n.EventTimeMillis, ok = attrs.Time("eventTimeMillis"); !ok {
		return nil, models.MissingKeyError(source, "eventTimeMillis")
	}

	payload, err := parsePayload(attrs, n.Version)
	if err != nil {
		return nil, err
	}
	n.Payload = payload
	return n, nil
}

// oneTimeProductNotification wins when both payloads are present.
func parsePayload(attrs models.Attributes, version string) (Payload, error) {
	if p, ok := attrs.Map(string(PayloadOneTimeProduct)); ok {
		source := string(PayloadOneTimeProduct)
		var n OneTimeProductNotification
		if n.Version, ok = p.String("version"); !ok {
			return nil, models.MissingKeyError(source, "version")
		}
		t, ok := p.Int("notificationType")
		if !ok {
			return nil, models.MissingKeyError(source, "notificationType")
		}
		n.NotificationType = OneTimeProductNotificationType(t)
		if n.PurchaseToken, ok = p.String("purchaseToken"); !ok {
			return nil, models.MissingKeyError(source, "purchaseToken")
		}
		if n.SKU, ok = p.String("sku"); !ok {
			return nil, models.MissingKeyError(source, "sku")
		}
		return n, nil
	}

	if p, ok := attrs.Map(string(PayloadSubscription)); ok {
		source := string(PayloadSubscription)
		var n SubscriptionNotification
		if n.Version, ok = p.String("version"); !ok {
			return nil, models.MissingKeyError(source, "version")
		}
		t, ok := p.Int("notificationType")
		if !ok {
			return nil, models.MissingKeyError(source, "notificationType")
		}
		n.NotificationType = SubscriptionNotificationType(t)
		if n.PurchaseToken, ok = p.String("purchaseToken"); !ok {
			return nil, models.MissingKeyError(source, "purchaseToken")
		}
		if n.SubscriptionID, ok = p.String("subscriptionId"); !ok {
			return nil, models.MissingKeyError(source, "subscriptionId")
		}
		return n, nil
	}

	if p, ok := attrs.Map(string(PayloadTest)); ok {
		if v, ok := p.String("version"); ok {
			version = v
		}
	}
	return TestNotification{Version: version}, nil
}

func padBase64(s string) string {
	s = strings.TrimRight(s, "=")
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return s
}
