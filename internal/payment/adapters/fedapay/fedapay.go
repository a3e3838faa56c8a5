// Package fedapay implements the mobile-money rail against FedaPay's HTTP API.
package fedapay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/payment/domain"
	"go.uber.org/zap"
)

const (
	liveAPIBase    = "https://api.fedapay.com/v1"
	sandboxAPIBase = "https://sandbox-api.fedapay.com/v1"
)

type Client struct {
	apiBase       string
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
	log           *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	base := sandboxAPIBase
	if cfg.FedaPayEnvironment == "live" {
		base = liveAPIBase
	}
	return &Client{
		apiBase:       base,
		secretKey:     cfg.FedaPaySecretKey,
		webhookSecret: cfg.FedaPayWebhookSecret,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.ProviderTimeoutMillis) * time.Millisecond,
		},
		log: log.Named("payment.fedapay"),
	}
}

func (c *Client) CreateTransaction(ctx context.Context, params domain.TransactionParams) (*domain.Transaction, error) {
	firstname, lastname := splitName(params.CustomerName)
	country := params.CustomerCountry
	if country == "" {
		country = "bj"
	}

	body := map[string]any{
		"description":  params.Description,
		"amount":       params.Amount.InexactFloat64(),
		"currency":     map[string]string{"iso": string(params.Currency)},
		"callback_url": params.CallbackURL,
		"customer": map[string]any{
			"email":     params.CustomerEmail,
			"firstname": firstname,
			"lastname":  lastname,
			"phone_number": map[string]string{
				"number":  params.CustomerPhone,
				"country": country,
			},
		},
	}

	var created struct {
		V1Transaction struct {
			ID int64 `json:"id"`
		} `json:"v1/transaction"`
	}
	if err := c.post(ctx, "/transactions", body, &created); err != nil {
		return nil, err
	}
	if created.V1Transaction.ID == 0 {
		return nil, fmt.Errorf("fedapay: transaction id missing from response")
	}
	id := strconv.FormatInt(created.V1Transaction.ID, 10)

	var token struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	if err := c.post(ctx, "/transactions/"+id+"/token", nil, &token); err != nil {
		return nil, err
	}

	return &domain.Transaction{TransactionID: id, PaymentURL: token.URL}, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+path, reader)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fedapay request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		c.log.Warn("fedapay api error",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return fmt.Errorf("fedapay api error %d: %s", resp.StatusCode, raw)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// VerifyWebhook checks the X-FEDAPAY-SIGNATURE header (t=...,s=... with an
// HMAC-SHA256 over "<timestamp>.<payload>") and maps transaction events onto
// the settlement contract. Declined and canceled are equivalent outcomes.
func (c *Client) VerifyWebhook(payload []byte, signatureHeader string) (*domain.WebhookEvent, error) {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" {
		return nil, domain.ErrInvalidSignature
	}

	var timestamp, signature string
	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "s":
			signature = kv[1]
		}
	}
	if timestamp == "" || signature == "" {
		return nil, domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(c.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return nil, domain.ErrInvalidSignature
	}

	var event struct {
		Name   string `json:"name"`
		Entity struct {
			ID int64 `json:"id"`
		} `json:"entity"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, domain.ErrInvalidPayload
	}
	if event.Entity.ID == 0 {
		return nil, domain.ErrInvalidPayload
	}
	transactionID := strconv.FormatInt(event.Entity.ID, 10)

	switch event.Name {
	case "transaction.approved":
		return &domain.WebhookEvent{
			Kind:          domain.EventApproved,
			TransactionID: transactionID,
		}, nil
	case "transaction.declined", "transaction.canceled":
		return &domain.WebhookEvent{
			Kind:          domain.EventDeclined,
			TransactionID: transactionID,
			FailureReason: "Payment declined or canceled",
		}, nil
	default:
		return nil, domain.ErrEventIgnored
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(strings.TrimSpace(full))
	if len(parts) == 0 {
		return "-", "-"
	}
	if len(parts) == 1 {
		return parts[0], "-"
	}
	return parts[0], strings.Join(parts[1:], " ")
}
