package domain

import (
	"context"

	"github.com/Bando358/neonmeter/internal/auth"
	"github.com/bwmarrin/snowflake"
)

type CardInitiation struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

type MobileMoneyInitiation struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

type Service interface {
	// InitiateCardPayment creates a Stripe payment intent for a payable
	// invoice and persists the PENDING payment row before returning the
	// client secret.
	InitiateCardPayment(ctx context.Context, actor auth.Actor, invoiceID snowflake.ID) (*CardInitiation, error)

	// InitiateMobileMoneyPayment creates a FedaPay transaction and returns
	// the redirect URL.
	InitiateMobileMoneyPayment(ctx context.Context, actor auth.Actor, invoiceID snowflake.ID, phone, customerName, country string) (*MobileMoneyInitiation, error)

	// HandleApproved settles the payment and its invoice atomically.
	// Redelivery of an already-settled transaction is a no-op.
	HandleApproved(ctx context.Context, transactionID string) error

	// HandleDeclined marks the payment FAILED; the invoice stays payable.
	HandleDeclined(ctx context.Context, transactionID, reason string) error

	List(ctx context.Context, actor auth.Actor, companyID *snowflake.ID) ([]Payment, error)
}
