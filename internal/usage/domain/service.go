package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// FetchResult reports the outcome of one company's usage fetch inside a batch.
// One company's provider outage never aborts the batch.
type FetchResult struct {
	CompanyID snowflake.ID `json:"company_id"`
	Name      string       `json:"name"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
}

// HistoryEntry is a snapshot enriched with display-friendly derived values.
type HistoryEntry struct {
	UsageRecord
	PeriodLabel  string  `json:"period_label"`
	ComputeHours float64 `json:"compute_hours"`
	StorageGiB   float64 `json:"storage_gib"`
}

type Service interface {
	// FetchAndStore runs the full pipeline for one company: decrypt
	// credential, fetch consumption, parse, price, upsert the snapshot.
	// A nil periodDate defaults to the previous calendar month.
	FetchAndStore(ctx context.Context, companyID snowflake.ID, periodDate *time.Time) (*UsageRecord, error)

	// FetchAndStoreAll runs FetchAndStore for every ACTIVE company,
	// strictly sequentially to respect the provider rate ceiling.
	FetchAndStoreAll(ctx context.Context) ([]FetchResult, error)

	History(ctx context.Context, companyID snowflake.ID, months int) ([]HistoryEntry, error)
}

type Repository interface {
	FindByCompanyAndPeriod(ctx context.Context, companyID snowflake.ID, periodStart time.Time) (*UsageRecord, error)
	// Upsert inserts or fully replaces the snapshot keyed by
	// (company_id, period_start).
	Upsert(ctx context.Context, record *UsageRecord) error
	ListByCompanySince(ctx context.Context, companyID snowflake.ID, since time.Time) ([]UsageRecord, error)
}
