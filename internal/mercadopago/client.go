package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sebastianpd1/next-ecommerce-backend/internal/config"
)

const defaultBaseURL = "https://api.mercadopago.com"

// Provider is the name recorded on order payment snapshots
const Provider = "mercadopago"

// Payment statuses reported by MercadoPago
const (
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusPending   = "pending"
	StatusInProcess = "in_process"
)

// UnverifiedEvent is the only thing read off an inbound webhook body. It
// carries no amount and no status: those must come from GetPayment, never
// from the notification itself.
type UnverifiedEvent struct {
	Type string `json:"type"`
	Data struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// IsPayment reports whether the event is a payment notification with an id
func (e *UnverifiedEvent) IsPayment() bool {
	return e.Type == "payment" && e.Data.ID.String() != ""
}

// PaymentID returns the payment id carried by the event
func (e *UnverifiedEvent) PaymentID() string {
	return e.Data.ID.String()
}

// Payment is the authoritative payment record fetched from MercadoPago
type Payment struct {
	ID                json.Number            `json:"id"`
	Status            string                 `json:"status"`
	StatusDetail      string                 `json:"status_detail"`
	ExternalReference string                 `json:"external_reference"`
	TransactionAmount float64                `json:"transaction_amount"`
	Raw               map[string]interface{} `json:"-"`
}

// PreferenceItem is a checkout line sent to MercadoPago
type PreferenceItem struct {
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
	SKU        string  `json:"id,omitempty"`
}

// BackURLs are the storefront pages the buyer returns to after checkout
type BackURLs struct {
	Success string `json:"success"`
	Pending string `json:"pending"`
	Failure string `json:"failure"`
}

// PreferenceRequest opens a checkout preference
type PreferenceRequest struct {
	Items             []PreferenceItem `json:"items"`
	ExternalReference string           `json:"external_reference"`
	AutoReturn        string           `json:"auto_return,omitempty"`
	BackURLs          *BackURLs        `json:"back_urls,omitempty"`
	NotificationURL   string           `json:"notification_url,omitempty"`
}

// Preference is MercadoPago's answer to a preference creation
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// RedirectURL returns the checkout URL, preferring production over sandbox
func (p *Preference) RedirectURL() string {
	if p.InitPoint != "" {
		return p.InitPoint
	}
	return p.SandboxInitPoint
}

type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a MercadoPago REST client
func NewClient(cfg config.MercadoPagoConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: cfg.AccessToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// GetPayment fetches the authoritative payment record by id
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	url := fmt.Sprintf("%s/v1/payments/%s", c.baseURL, paymentID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var payment Payment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
	}
	if err := json.Unmarshal(body, &payment.Raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payment payload: %w", err)
	}

	return &payment, nil
}

// CreatePreference opens a checkout preference and returns the redirect target
func (c *Client) CreatePreference(ctx context.Context, pref PreferenceRequest) (*Preference, error) {
	jsonData, err := json.Marshal(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preference: %w", err)
	}

	url := c.baseURL + "/checkout/preferences"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var created Preference
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("failed to unmarshal preference: %w", err)
	}

	return &created, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("MercadoPago API error",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("mercadopago API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
