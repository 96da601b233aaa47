package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"iap-gateway/pkg/logging"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body.
const SignatureHeader = "X-IAP-Signature"

// WebhookNotifier forwards events to the app backend
type WebhookNotifier struct {
	httpClient  *http.Client
	callbackURL string
	secret      string
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(callbackURL, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		httpClient: &http.Client{
			Timeout: 10 * time.Second, // 10 second timeout
		},
		callbackURL: callbackURL,
		secret:      secret,
	}
}

// WebhookPayload represents the payload sent to App Backend
type WebhookPayload struct {
	Event     string        `json:"event"`     // always "subscription.event"
	Data      EventEnvelope `json:"data"`      // resolved event
	Timestamp string        `json:"timestamp"` // ISO 8601 format
}

func (wn *WebhookNotifier) Name() string { return "webhook" }

// Deliver sends one request. A non-2xx answer is an error so the provider
// redelivers the notification.
func (wn *WebhookNotifier) Deliver(ctx context.Context, envelope EventEnvelope) error {
	if wn.callbackURL == "" {
		// No webhook configured, skip
		return nil
	}

	payload := WebhookPayload{
		Event:     "subscription.event",
		Data:      envelope,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := wn.sendWebhook(ctx, payload); err != nil {
		return err
	}

	logging.Infof("Webhook notification sent successfully - url: %s, event: %s, kind: %s",
		wn.callbackURL, envelope.ID, envelope.Kind)
	return nil
}

// sendWebhook sends a single webhook request
func (wn *WebhookNotifier) sendWebhook(ctx context.Context, payload WebhookPayload) error {
	// Marshal payload to JSON
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	// Create HTTP request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wn.callbackURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "IAP-Gateway-Webhook/1.0")

	// Add signature if secret is provided
	if wn.secret != "" {
		req.Header.Set(SignatureHeader, Sign(jsonData, wn.secret))
	}

	// Send request
	resp, err := wn.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// Check response status
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// Sign generates the HMAC-SHA256 signature for a webhook payload
func Sign(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
