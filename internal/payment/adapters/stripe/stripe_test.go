package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/currency"
	"github.com/Bando358/neonmeter/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test_secret"

func testClient(apiBase string) *Client {
	c := NewClient(config.Config{
		StripeSecretKey:       "sk_test_123",
		StripeWebhookSecret:   testWebhookSecret,
		ProviderTimeoutMillis: 5000,
	}, zap.NewNop())
	if apiBase != "" {
		c.apiBase = apiBase
	}
	return c
}

func signPayload(t *testing.T, timestamp string, payload []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	_, err := mac.Write([]byte(timestamp + "." + string(payload)))
	require.NoError(t, err)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestEnsureCustomerPostsForm(t *testing.T) {
	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	companyID := node.Generate()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customers", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "Acme Analytics", r.PostForm.Get("name"))
		assert.Equal(t, "billing@acme.test", r.PostForm.Get("email"))
		assert.Equal(t, companyID.String(), r.PostForm.Get("metadata[company_id]"))
		fmt.Fprint(w, `{"id":"cus_123"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	id, err := client.EnsureCustomer(context.Background(), domain.CustomerParams{
		CompanyID: companyID,
		Name:      "Acme Analytics",
		Email:     "billing@acme.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "cus_123", id)
}

func TestCreateIntentPostsMinorUnits(t *testing.T) {
	node, err := snowflake.NewNode(8)
	require.NoError(t, err)
	invoiceID := node.Generate()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment_intents", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "449", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "cus_123", r.PostForm.Get("customer"))
		assert.Equal(t, "NM-2026-07-001", r.PostForm.Get("metadata[invoice_number]"))
		fmt.Fprint(w, `{"id":"pi_123","client_secret":"pi_123_secret"}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	intent, err := client.CreateIntent(context.Background(), domain.IntentParams{
		CustomerID:    "cus_123",
		AmountMinor:   449,
		Currency:      currency.USD,
		InvoiceID:     invoiceID,
		InvoiceNumber: "NM-2026-07-001",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
}

func TestCreateIntentSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"Your card was declined."}}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.CreateIntent(context.Background(), domain.IntentParams{AmountMinor: 449, Currency: currency.USD})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "402")
}

func TestVerifyWebhookApproved(t *testing.T) {
	client := testClient("")
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_42"}}}`)

	event, err := client.VerifyWebhook(payload, signPayload(t, "1756710000", payload))
	require.NoError(t, err)
	assert.Equal(t, domain.EventApproved, event.Kind)
	assert.Equal(t, "pi_42", event.TransactionID)
}

func TestVerifyWebhookDeclinedCarriesReason(t *testing.T) {
	client := testClient("")
	payload := []byte(`{
		"id": "evt_2",
		"type": "payment_intent.payment_failed",
		"data": {"object": {"id": "pi_43", "last_payment_error": {"message": "Your card has insufficient funds."}}}
	}`)

	event, err := client.VerifyWebhook(payload, signPayload(t, "1756710000", payload))
	require.NoError(t, err)
	assert.Equal(t, domain.EventDeclined, event.Kind)
	assert.Equal(t, "pi_43", event.TransactionID)
	assert.Equal(t, "Your card has insufficient funds.", event.FailureReason)
}

func TestVerifyWebhookDeclinedWithoutErrorDetail(t *testing.T) {
	client := testClient("")
	payload := []byte(`{"id":"evt_3","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_44"}}}`)

	event, err := client.VerifyWebhook(payload, signPayload(t, "1756710000", payload))
	require.NoError(t, err)
	assert.Equal(t, "Payment failed", event.FailureReason)
}

func TestVerifyWebhookRejectsBadSignatures(t *testing.T) {
	client := testClient("")
	payload := []byte(`{"id":"evt_4","type":"payment_intent.succeeded","data":{"object":{"id":"pi_45"}}}`)

	cases := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"garbage header", "not-a-signature"},
		{"wrong hmac", "t=1756710000,v1=" + hex.EncodeToString(make([]byte, 32))},
		{"missing timestamp", "v1=abcdef"},
		{"tampered payload", signPayload(t, "1756710000", []byte(`{"other":true}`))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := client.VerifyWebhook(payload, tc.header)
			assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		})
	}
}

func TestVerifyWebhookIgnoresUnrelatedEvents(t *testing.T) {
	client := testClient("")
	payload := []byte(`{"id":"evt_5","type":"charge.refunded","data":{"object":{"id":"ch_1"}}}`)

	_, err := client.VerifyWebhook(payload, signPayload(t, "1756710000", payload))
	assert.ErrorIs(t, err, domain.ErrEventIgnored)
}

func TestVerifyWebhookRejectsMalformedPayload(t *testing.T) {
	client := testClient("")

	payload := []byte(`{not json`)
	_, err := client.VerifyWebhook(payload, signPayload(t, "1756710000", payload))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	payload = []byte(`{"id":"evt_6","type":"payment_intent.succeeded","data":{"object":{}}}`)
	_, err = client.VerifyWebhook(payload, signPayload(t, "1756710000", payload))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
