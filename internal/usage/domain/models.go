// Package domain contains persistence models for usage snapshots.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord is the per-period billing truth: one row per
// (company, period start). Re-fetching the same period replaces metrics and
// derived costs wholesale, it never accumulates.
type UsageRecord struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_usage_company_period" json:"company_id"`
	PeriodStart time.Time    `gorm:"not null;uniqueIndex:ux_usage_company_period" json:"period_start"`
	PeriodEnd   time.Time    `gorm:"not null" json:"period_end"`

	ComputeUnitSeconds         float64 `gorm:"not null;default:0" json:"compute_unit_seconds"`
	RootBranchBytesMonth       float64 `gorm:"not null;default:0" json:"root_branch_bytes_month"`
	ChildBranchBytesMonth      float64 `gorm:"not null;default:0" json:"child_branch_bytes_month"`
	InstantRestoreBytesMonth   float64 `gorm:"not null;default:0" json:"instant_restore_bytes_month"`
	PublicNetworkTransferBytes float64 `gorm:"not null;default:0" json:"public_network_transfer_bytes"`
	PrivateNetworkTransfer     float64 `gorm:"not null;default:0" json:"private_network_transfer_bytes"`
	WrittenDataBytes           float64 `gorm:"not null;default:0" json:"written_data_bytes"`
	ExtraBranchesMonth         float64 `gorm:"not null;default:0" json:"extra_branches_month"`

	EstimatedCostCents int64 `gorm:"not null;default:0" json:"estimated_cost_cents"`
	BilledAmountCents  int64 `gorm:"not null;default:0" json:"billed_amount_cents"`

	FetchedAt time.Time `gorm:"not null" json:"fetched_at"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }
