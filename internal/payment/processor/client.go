// Package processor provides the HTTP client for the external payment
// processor's checkout API.
package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront_backend/platform/apperr"
	"storefront_backend/platform/config"
	"storefront_backend/platform/logger"
)

// StatusCompleted is the only capture status that counts as money received.
const StatusCompleted = "COMPLETED"

// OrderItem is one display line forwarded to the processor's checkout page.
// The processor never prices anything from these; the amount totals govern.
type OrderItem struct {
	Name           string
	Quantity       int
	UnitPriceCents int64
}

// OrderRequest describes a checkout order to create at the processor.
type OrderRequest struct {
	ReferenceID   string
	ItemTotal     int64
	DiscountCents int64
	ShippingCents int64
	FinalCents    int64
	Items         []OrderItem
}

// CreatedOrder is the processor's handle for a newly created checkout order.
type CreatedOrder struct {
	ID         string `json:"id"`
	ApproveURL string `json:"approveUrl"`
}

// Capture is the processor's record of a completed capture.
type Capture struct {
	CaptureID   string
	Status      string
	PayerName   string
	PayerEmail  string
	AmountCents int64
}

// Client is the HTTP client for the processor's REST API. Access tokens are
// fetched with the client-credentials grant and cached until shortly before
// expiry.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
	currency   string
	log        *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a new processor API client.
func New(cfg config.ProcessorConfig, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.GetProcessorTimeout()},
		baseURL:    strings.TrimRight(cfg.GetProcessorBaseURL(), "/"),
		clientID:   cfg.GetProcessorClientID(),
		secret:     cfg.GetProcessorSecret(),
		currency:   cfg.GetCurrencyCode(),
		log:        log,
	}
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type amountBreakdown struct {
	ItemTotal amount  `json:"item_total"`
	Shipping  *amount `json:"shipping,omitempty"`
	Discount  *amount `json:"discount,omitempty"`
}

type purchaseUnit struct {
	ReferenceID string `json:"reference_id"`
	Amount      struct {
		CurrencyCode string           `json:"currency_code"`
		Value        string           `json:"value"`
		Breakdown    *amountBreakdown `json:"breakdown,omitempty"`
	} `json:"amount"`
	Items []itemPayload `json:"items,omitempty"`
}

type itemPayload struct {
	Name       string `json:"name"`
	Quantity   string `json:"quantity"`
	UnitAmount amount `json:"unit_amount"`
}

// CreateOrder creates a checkout order at the processor and returns its id
// plus the buyer approval URL.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*CreatedOrder, error) {
	var pu purchaseUnit
	pu.ReferenceID = req.ReferenceID
	pu.Amount.CurrencyCode = c.currency
	pu.Amount.Value = centsToDecimal(req.FinalCents)
	pu.Amount.Breakdown = &amountBreakdown{
		ItemTotal: amount{CurrencyCode: c.currency, Value: centsToDecimal(req.ItemTotal)},
	}
	if req.ShippingCents > 0 {
		pu.Amount.Breakdown.Shipping = &amount{CurrencyCode: c.currency, Value: centsToDecimal(req.ShippingCents)}
	}
	if req.DiscountCents > 0 {
		pu.Amount.Breakdown.Discount = &amount{CurrencyCode: c.currency, Value: centsToDecimal(req.DiscountCents)}
	}
	for _, it := range req.Items {
		pu.Items = append(pu.Items, itemPayload{
			Name:       it.Name,
			Quantity:   fmt.Sprintf("%d", it.Quantity),
			UnitAmount: amount{CurrencyCode: c.currency, Value: centsToDecimal(it.UnitPriceCents)},
		})
	}

	// The breakdown must reconcile or the processor rejects the order. When
	// item math and the final amount disagree (total_override), send the
	// amount alone.
	if req.ItemTotal-req.DiscountCents+req.ShippingCents != req.FinalCents {
		pu.Amount.Breakdown = nil
		pu.Items = nil
	}

	body := map[string]any{
		"intent":         "CAPTURE",
		"purchase_units": []purchaseUnit{pu},
	}

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Links  []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v2/checkout/orders", body, &out); err != nil {
		return nil, err
	}

	created := &CreatedOrder{ID: out.ID}
	for _, l := range out.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			created.ApproveURL = l.Href
			break
		}
	}
	return created, nil
}

// CaptureOrder captures an approved checkout order. Anything other than a
// COMPLETED capture is an error: the caller must not record an order for it.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*Capture, error) {
	var out struct {
		Status string `json:"status"`
		Payer  struct {
			Name struct {
				GivenName string `json:"given_name"`
				Surname   string `json:"surname"`
			} `json:"name"`
			EmailAddress string `json:"email_address"`
		} `json:"payer"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
					Amount amount `json:"amount"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}

	path := "/v2/checkout/orders/" + url.PathEscape(orderID) + "/capture"
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]any{}, &out); err != nil {
		return nil, err
	}

	captured := Capture{
		Status:     out.Status,
		PayerName:  strings.TrimSpace(out.Payer.Name.GivenName + " " + out.Payer.Name.Surname),
		PayerEmail: out.Payer.EmailAddress,
	}
	for _, u := range out.PurchaseUnits {
		for _, cp := range u.Payments.Captures {
			captured.CaptureID = cp.ID
			if cp.Status != "" {
				captured.Status = cp.Status
			}
			captured.AmountCents = decimalToCents(cp.Amount.Value)
		}
	}

	if captured.Status != StatusCompleted {
		return nil, apperr.Processor(fmt.Sprintf("capture not completed: status %s", captured.Status), nil)
	}
	if captured.CaptureID == "" {
		return nil, apperr.Processor("capture response carried no capture id", nil)
	}
	return &captured, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal processor request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create processor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("processor request failed", "method", method, "path", path, "error", err)
		return apperr.Processor("payment processor unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.log.Error("processor rejected request",
			"method", method, "path", path, "status", resp.StatusCode, "body", string(snippet))
		return apperr.Processor(fmt.Sprintf("payment processor returned status %d", resp.StatusCode), nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Processor("decode processor response", err)
		}
	}
	return nil
}

// accessToken returns a cached OAuth token, refreshing it via the
// client-credentials grant when it is within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.SetBasicAuth(c.clientID, c.secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Processor("payment processor token endpoint unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperr.Processor(fmt.Sprintf("processor token request returned status %d", resp.StatusCode), nil)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", apperr.Processor("decode processor token response", err)
	}

	c.token = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

// centsToDecimal renders int cents as the processor's two-decimal string.
func centsToDecimal(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// decimalToCents parses an amount string with up to two decimals; malformed
// input yields 0. The sign applies to the whole amount, fraction included.
func decimalToCents(value string) int64 {
	value = strings.TrimSpace(value)
	negative := strings.HasPrefix(value, "-")
	if negative {
		value = value[1:]
	}

	unitsPart, fracPart, _ := strings.Cut(value, ".")
	units, err := strconv.ParseInt(unitsPart, 10, 64)
	if err != nil || units < 0 {
		return 0
	}

	switch len(fracPart) {
	case 0:
		fracPart = "00"
	case 1:
		fracPart += "0"
	case 2:
	default:
		return 0
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil || frac < 0 {
		return 0
	}

	cents := units*100 + frac
	if negative {
		cents = -cents
	}
	return cents
}
