// Package stripe implements the card rail against Stripe's HTTP API.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/payment/domain"
	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.stripe.com/v1"

type Client struct {
	apiBase       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
	log           *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		apiBase:       defaultAPIBase,
		secretKey:     cfg.StripeSecretKey,
		webhookSecret: cfg.StripeWebhookSecret,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.ProviderTimeoutMillis) * time.Millisecond,
		},
		log: log.Named("payment.stripe"),
	}
}

func (c *Client) EnsureCustomer(ctx context.Context, params domain.CustomerParams) (string, error) {
	form := url.Values{}
	form.Set("name", params.Name)
	if params.Email != "" {
		form.Set("email", params.Email)
	}
	form.Set("metadata[company_id]", params.CompanyID.String())

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/customers", form, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) CreateIntent(ctx context.Context, params domain.IntentParams) (*domain.Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(params.AmountMinor, 10))
	form.Set("currency", strings.ToLower(string(params.Currency)))
	form.Set("customer", params.CustomerID)
	form.Set("metadata[invoice_id]", params.InvoiceID.String())
	form.Set("metadata[invoice_number]", params.InvoiceNumber)
	form.Set("metadata[company_id]", params.CompanyID.String())

	var resp struct {
		ID           string `json:"id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := c.post(ctx, "/payment_intents", form, &resp); err != nil {
		return nil, err
	}
	return &domain.Intent{ID: resp.ID, ClientSecret: resp.ClientSecret}, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		c.log.Warn("stripe api error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return fmt.Errorf("stripe api error %d: %s", resp.StatusCode, body)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// VerifyWebhook checks the Stripe-Signature header (HMAC-SHA256 over
// "<timestamp>.<payload>") and maps recognized payment_intent events onto the
// settlement contract.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) (*domain.WebhookEvent, error) {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return nil, domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, domain.ErrInvalidSignature
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID               string `json:"id"`
				LastPaymentError *struct {
					Message string `json:"message"`
				} `json:"last_payment_error"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if event.Data.Object.ID == "" {
		return nil, domain.ErrInvalidPayload
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return &domain.WebhookEvent{
			Kind:          domain.EventApproved,
			TransactionID: event.Data.Object.ID,
		}, nil
	case "payment_intent.payment_failed":
		reason := "Payment failed"
		if event.Data.Object.LastPaymentError != nil && event.Data.Object.LastPaymentError.Message != "" {
			reason = event.Data.Object.LastPaymentError.Message
		}
		return &domain.WebhookEvent{
			Kind:          domain.EventDeclined,
			TransactionID: event.Data.Object.ID,
			FailureReason: reason,
		}, nil
	default:
		return nil, domain.ErrEventIgnored
	}
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, domain.ErrInvalidSignature
	}
	return timestamp, signatures, nil
}
