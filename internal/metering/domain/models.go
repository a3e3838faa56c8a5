// Package domain defines the Neon consumption API surface consumed by the
// usage pipeline.
package domain

import (
	"context"
	"fmt"
	"time"
)

// ConsumptionResponse is the shape returned by Neon's consumption history API.
type ConsumptionResponse struct {
	Projects   []Project   `json:"projects"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Cursor string `json:"cursor,omitempty"`
}

type Project struct {
	ProjectID string   `json:"project_id"`
	Periods   []Period `json:"periods"`
}

type Period struct {
	PeriodID    string             `json:"period_id"`
	PeriodPlan  string             `json:"period_plan"`
	PeriodStart string             `json:"period_start"`
	Consumption []ConsumptionEntry `json:"consumption"`
}

type ConsumptionEntry struct {
	TimeframeStart string   `json:"timeframe_start"`
	TimeframeEnd   string   `json:"timeframe_end"`
	Metrics        []Metric `json:"metrics"`
}

type Metric struct {
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
}

// Metrics is the fixed-shape record produced by the parser: every known metric
// summed across all returned periods for one project.
type Metrics struct {
	ComputeUnitSeconds         float64
	RootBranchBytesMonth       float64
	ChildBranchBytesMonth      float64
	InstantRestoreBytesMonth   float64
	PublicNetworkTransferBytes float64
	PrivateNetworkTransfer     float64
	WrittenDataBytes           float64
	ExtraBranchesMonth         float64
}

type Granularity string

const (
	GranularityHourly  Granularity = "hourly"
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
)

type FetchParams struct {
	APIKey      string
	OrgID       string
	ProjectIDs  []string
	From        time.Time
	To          time.Time
	Granularity Granularity
}

// Client fetches consumption history from the metering provider.
type Client interface {
	FetchConsumption(ctx context.Context, params FetchParams) (*ConsumptionResponse, error)
}

// UpstreamError carries the provider status code and a truncated response body
// for diagnostics. Timeouts surface with Status 0.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("neon api request failed: %s", e.Body)
	}
	return fmt.Sprintf("neon api error %d: %s", e.Status, e.Body)
}
