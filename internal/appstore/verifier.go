package appstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"iap-gateway/pkg/logging"
)

const (
	ProductionURL = "https://buy.itunes.apple.com/verifyReceipt"
	SandboxURL    = "https://sandbox.itunes.apple.com/verifyReceipt"
)

// ReceiptVerifier verifies a base64 receipt against the App Store.
type ReceiptVerifier interface {
	VerifyReceipt(ctx context.Context, receiptData, sharedSecret string, excludeOldTransactions bool) (*ReceiptResponse, error)
}

// ReceiptClient talks to the legacy verifyReceipt endpoints.
type ReceiptClient struct {
	httpClient    *http.Client
	productionURL string
	sandboxURL    string
}

// ReceiptClientOption configures a ReceiptClient.
type ReceiptClientOption func(*ReceiptClient)

func WithHTTPClient(c *http.Client) ReceiptClientOption {
	return func(rc *ReceiptClient) {
		rc.httpClient = c
	}
}

func WithProductionURL(url string) ReceiptClientOption {
	return func(rc *ReceiptClient) {
		rc.productionURL = url
	}
}

func WithSandboxURL(url string) ReceiptClientOption {
	return func(rc *ReceiptClient) {
		rc.sandboxURL = url
	}
}

// NewReceiptClient creates a client for the production and sandbox endpoints
func NewReceiptClient(opts ...ReceiptClientOption) *ReceiptClient {
	c := &ReceiptClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		productionURL: ProductionURL,
		sandboxURL:    SandboxURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type verifyRequest struct {
	ReceiptData            string `json:"receipt-data"`
	Password               string `json:"password,omitempty"`
	ExcludeOldTransactions bool   `json:"exclude-old-transactions"`
}

// VerifyReceipt verifies against production first. Status 21007 means the
// receipt belongs to the sandbox: the identical request is sent there once
// and that response is returned as is. Any other documented error status
// fails with *InvalidReceiptStatusError.
func (c *ReceiptClient) VerifyReceipt(ctx context.Context, receiptData, sharedSecret string, excludeOldTransactions bool) (*ReceiptResponse, error) {
	req := verifyRequest{
		ReceiptData:            receiptData,
		Password:               sharedSecret,
		ExcludeOldTransactions: excludeOldTransactions,
	}

	resp, err := c.post(ctx, c.productionURL, req)
	if err != nil {
		return nil, err
	}

	status := resp.Status()
	switch {
	case status.IsValid():
		return resp, nil
	case status.NeedsSandboxRetry():
		logging.Infof("Receipt is from sandbox, retrying with sandbox URL")
		return c.post(ctx, c.sandboxURL, req)
	case status.IsTerminal():
		return nil, newInvalidStatus(status)
	default:
		logging.Warnf("verifyReceipt returned undocumented status %d", resp.StatusCode())
		return resp, nil
	}
}

func (c *ReceiptClient) post(ctx context.Context, url string, payload verifyRequest) (*ReceiptResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to verify receipt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("verifyReceipt returned HTTP %d", resp.StatusCode)
	}

	return ParseReceiptResponse(body)
}
