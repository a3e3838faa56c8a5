// Package domain contains persistence models for billed companies.
package domain

import (
	"time"

	"github.com/Bando358/neonmeter/internal/currency"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CompanyStatus represents company lifecycle states.
type CompanyStatus string

const (
	StatusActive    CompanyStatus = "ACTIVE"
	StatusSuspended CompanyStatus = "SUSPENDED"
	StatusCancelled CompanyStatus = "CANCELLED"
)

// Company is a billed tenant: identity plus billing configuration. A company
// that is not ACTIVE is excluded from usage fetch and invoice generation.
type Company struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Name  string       `gorm:"type:text;not null" json:"name"`
	Slug  string       `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Email *string      `gorm:"type:text" json:"email,omitempty"`

	NeonProjectID string `gorm:"type:text;not null" json:"neon_project_id"`
	NeonOrgID     string `gorm:"type:text" json:"neon_org_id,omitempty"`

	// Encrypted Neon API key, AES-256-GCM, hex columns.
	NeonAPIKeyCipher string `gorm:"type:text;not null" json:"-"`
	NeonAPIKeyIV     string `gorm:"type:text;not null" json:"-"`
	NeonAPIKeyTag    string `gorm:"type:text;not null" json:"-"`

	MarkupPercent float64           `gorm:"not null;default:20" json:"markup_percent"`
	Currency      currency.Currency `gorm:"type:text;not null;default:'USD'" json:"currency"`
	Status        CompanyStatus     `gorm:"type:text;not null;default:'ACTIVE';index" json:"status"`

	// Provider-side customer id, cached after first creation.
	StripeCustomerID *string `gorm:"type:text" json:"-"`

	AlertThresholdCents *int64 `gorm:"" json:"alert_threshold_cents,omitempty"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }
