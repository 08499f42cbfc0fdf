package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/storepay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
)

const (
	defaultBaseURL                = "https://api.paystack.co"
	defaultTimeout                = 10 * time.Second
	responseBodyReadLimit   int64 = 1024
	responseBodyDecodeLimit int64 = 1 << 20
	gatewayStatusSuccess          = "success"
)

var errSecretKeyRequired = errors.New("paystack secret key is required")

// Client calls the Paystack transaction verification endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	timeout    time.Duration
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the Paystack API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout bounds every verification call.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// NewClient builds a Paystack client given a secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey: trimmedKey,
		baseURL:   defaultBaseURL,
		timeout:   defaultTimeout,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.timeout}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// NewFromConfig builds a client from the Paystack config group.
func NewFromConfig(cfg config.PaystackConfig, opts ...Option) (*Client, error) {
	base := []Option{WithBaseURL(cfg.BaseURL), WithTimeout(cfg.Timeout)}
	return NewClient(cfg.SecretKey, append(base, opts...)...)
}

// Verification is the normalized outcome of a verify call.
type Verification struct {
	Reference     string
	Confirmed     bool
	GatewayStatus string
	Message       string
	AmountMinor   int64
	Currency      string
	PaidAt        *time.Time
}

type verifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		Reference string     `json:"reference"`
		Status    string     `json:"status"`
		Amount    int64      `json:"amount"`
		Currency  string     `json:"currency"`
		PaidAt    *time.Time `json:"paid_at"`
	} `json:"data"`
}

// Verify asks Paystack whether the transaction behind reference succeeded.
// A declined or unknown transaction is reported through Confirmed=false; only
// transport failures, 5xx answers and unreadable bodies return an error.
func (c *Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paystack client not configured")
	}
	trimmed := strings.TrimSpace(reference)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/transaction/verify/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build verify request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.secretKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute verify request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusUnauthorized {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "verify request failed")
	}

	var apiResp verifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyDecodeLimit)).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode verify response")
	}

	result := &Verification{
		Reference: trimmed,
		Message:   apiResp.Message,
	}
	if apiResp.Data != nil {
		result.GatewayStatus = apiResp.Data.Status
		result.AmountMinor = apiResp.Data.Amount
		result.Currency = apiResp.Data.Currency
		result.PaidAt = apiResp.Data.PaidAt
	}
	result.Confirmed = resp.StatusCode == http.StatusOK && apiResp.Status && result.GatewayStatus == gatewayStatusSuccess

	return result, nil
}

// Confirm reduces Verify to the yes/no answer the payment workflow needs.
func (c *Client) Confirm(ctx context.Context, reference string) (bool, error) {
	result, err := c.Verify(ctx, reference)
	if err != nil {
		return false, err
	}
	return result.Confirmed, nil
}
