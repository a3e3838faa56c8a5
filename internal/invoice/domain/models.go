// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/Bando358/neonmeter/internal/currency"
	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusPending   InvoiceStatus = "PENDING"
	StatusPaid      InvoiceStatus = "PAID"
	StatusOverdue   InvoiceStatus = "OVERDUE"
	StatusCancelled InvoiceStatus = "CANCELLED"
)

// Payable reports whether a payment attempt may be initiated. OVERDUE is
// payable, same as PENDING.
func (s InvoiceStatus) Payable() bool {
	return s == StatusPending || s == StatusOverdue
}

// Invoice is derived from a usage snapshot, at most one per
// (company, period start). Amount is copied from the snapshot at creation and
// immutable afterward, even if the snapshot is re-fetched later.
type Invoice struct {
	ID     snowflake.ID `gorm:"primaryKey" json:"id"`
	Number string       `gorm:"type:text;not null;uniqueIndex" json:"number"`

	CompanyID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_invoice_company_period" json:"company_id"`
	PeriodStart time.Time    `gorm:"not null;uniqueIndex:ux_invoice_company_period" json:"period_start"`
	PeriodEnd   time.Time    `gorm:"not null" json:"period_end"`

	AmountCents int64             `gorm:"not null" json:"amount_cents"`
	Currency    currency.Currency `gorm:"type:text;not null" json:"currency"`

	Status  InvoiceStatus `gorm:"type:text;not null;default:'PENDING';index" json:"status"`
	DueDate time.Time     `gorm:"not null;index" json:"due_date"`
	PaidAt  *time.Time    `gorm:"" json:"paid_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }
