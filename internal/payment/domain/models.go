// Package domain contains persistence models and provider contracts for
// payments.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Bando358/neonmeter/internal/currency"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents payment lifecycle states.
type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusSucceeded PaymentStatus = "SUCCEEDED"
	StatusFailed    PaymentStatus = "FAILED"
	StatusRefunded  PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCard        PaymentMethod = "CARD"
	MethodMobileMoney PaymentMethod = "MOBILE_MONEY"
)

const (
	ProviderStripe  = "STRIPE"
	ProviderFedaPay = "FEDAPAY"
)

// Payment is one provider transaction attempt against an invoice. The
// provider-assigned transaction id is unique and acts as the idempotency key
// for webhook reconciliation.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`

	Method   PaymentMethod `gorm:"type:text;not null" json:"method"`
	Provider string        `gorm:"type:text;not null" json:"provider"`

	ExternalTransactionID string `gorm:"type:text;not null;uniqueIndex" json:"external_transaction_id"`

	AmountCents int64             `gorm:"not null" json:"amount_cents"`
	Currency    currency.Currency `gorm:"type:text;not null" json:"currency"`

	Status        PaymentStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	FailureReason *string       `gorm:"type:text" json:"failure_reason,omitempty"`
	PaidAt        *time.Time    `gorm:"" json:"paid_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

var (
	ErrPaymentNotFound  = errors.New("payment_not_found")
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	ErrInvalidPayload   = errors.New("invalid_webhook_payload")
	// ErrEventIgnored marks provider events outside the settlement contract.
	ErrEventIgnored = errors.New("webhook_event_ignored")
)

// EventKind is the canonical outcome parsed from a provider webhook.
// Declined and canceled provider events both map to EventDeclined.
type EventKind string

const (
	EventApproved EventKind = "approved"
	EventDeclined EventKind = "declined"
)

// WebhookEvent is the provider-agnostic settlement event.
type WebhookEvent struct {
	Kind          EventKind
	TransactionID string
	FailureReason string
}

type CustomerParams struct {
	CompanyID snowflake.ID
	Name      string
	Email     string
}

type IntentParams struct {
	CustomerID    string
	AmountMinor   int64
	Currency      currency.Currency
	InvoiceID     snowflake.ID
	InvoiceNumber string
	CompanyID     snowflake.ID
}

type Intent struct {
	ID           string
	ClientSecret string
}

// CardGateway is the card rail (Stripe). Amounts are in minor units.
type CardGateway interface {
	// EnsureCustomer returns the provider-side customer id for the company,
	// creating it on first use.
	EnsureCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateIntent(ctx context.Context, params IntentParams) (*Intent, error)
	// VerifyWebhook authenticates the payload and returns the typed event.
	// A missing or bad signature yields ErrInvalidSignature, never a parsed
	// event.
	VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}

type TransactionParams struct {
	// Amount is in major units: equal to the stored integer for zero-decimal
	// currencies, the /100 conversion otherwise.
	Amount          decimal.Decimal
	Currency        currency.Currency
	Description     string
	CallbackURL     string
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerCountry string
}

type Transaction struct {
	TransactionID string
	PaymentURL    string
}

// MobileMoneyGateway is the mobile-money rail (FedaPay).
type MobileMoneyGateway interface {
	CreateTransaction(ctx context.Context, params TransactionParams) (*Transaction, error)
	VerifyWebhook(payload []byte, signatureHeader string) (*WebhookEvent, error)
}

type Repository interface {
	FindByExternalID(ctx context.Context, externalTransactionID string) (*Payment, error)
	Create(ctx context.Context, payment *Payment) error
	List(ctx context.Context, companyID *snowflake.ID) ([]Payment, error)
}
