package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Bando358/neonmeter/internal/auth"
	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound = errors.New("invoice_not_found")
	// ErrNoUsageRecord means invoicing was attempted before a successful
	// usage fetch for the period.
	ErrNoUsageRecord = errors.New("no_usage_record_for_period")
	ErrNotPayable    = errors.New("invoice_not_payable")
)

// BillingResult reports the outcome of one company's monthly invoice run.
type BillingResult struct {
	CompanyID snowflake.ID  `json:"company_id"`
	Name      string        `json:"name"`
	InvoiceID *snowflake.ID `json:"invoice_id,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type Service interface {
	// Generate derives the invoice for (company, period). Returns (nil, nil)
	// for zero-amount periods and the existing invoice unchanged when one
	// already covers the period.
	Generate(ctx context.Context, companyID snowflake.ID, periodStart, periodEnd time.Time) (*Invoice, error)

	// RunMonthlyBilling generates invoices for every ACTIVE company for the
	// previous calendar month. Per-company failures land in the result list.
	RunMonthlyBilling(ctx context.Context) ([]BillingResult, error)

	GetByID(ctx context.Context, actor auth.Actor, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, actor auth.Actor, companyID *snowflake.ID) ([]Invoice, error)
}

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	FindByCompanyAndPeriod(ctx context.Context, companyID snowflake.ID, periodStart time.Time) (*Invoice, error)
	List(ctx context.Context, companyID *snowflake.ID) ([]Invoice, error)
	// CreateNumbered persists the invoice, allocating its sequential number
	// for the period's year-month atomically with the insert.
	CreateNumbered(ctx context.Context, invoice *Invoice) error
}
