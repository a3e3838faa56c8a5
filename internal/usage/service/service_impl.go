package service

import (
	"context"
	"time"

	"github.com/Bando358/neonmeter/internal/clock"
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/metering"
	meteringdomain "github.com/Bando358/neonmeter/internal/metering/domain"
	"github.com/Bando358/neonmeter/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	CompanySvc companydomain.Service
	Metering   meteringdomain.Client
	Pricing    *config.PricingHolder
	Cfg        config.Config
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	companySvc companydomain.Service
	metering   meteringdomain.Client
	pricing    *config.PricingHolder

	delay          time.Duration
	delayThreshold int
	sleep          func(time.Duration)
}

func NewService(p Params) domain.Service {
	return &Service{
		log:            p.Log.Named("usage.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		companySvc:     p.CompanySvc,
		metering:       p.Metering,
		pricing:        p.Pricing,
		delay:          time.Duration(p.Cfg.FetchDelayMillis) * time.Millisecond,
		delayThreshold: p.Cfg.FetchDelayThreshold,
		sleep:          time.Sleep,
	}
}

func (s *Service) FetchAndStore(ctx context.Context, companyID snowflake.ID, periodDate *time.Time) (*domain.UsageRecord, error) {
	company, err := s.companySvc.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company.Status != companydomain.StatusActive {
		return nil, companydomain.ErrNotActive
	}

	target := monthStart(s.clock.Now()).AddDate(0, -1, 0)
	if periodDate != nil {
		target = periodDate.UTC()
	}
	periodStart, periodEnd := MonthBounds(target)

	apiKey, err := s.companySvc.DecryptAPIKey(ctx, company)
	if err != nil {
		return nil, err
	}

	resp, err := s.metering.FetchConsumption(ctx, meteringdomain.FetchParams{
		APIKey:      apiKey,
		OrgID:       company.NeonOrgID,
		ProjectIDs:  []string{company.NeonProjectID},
		From:        periodStart,
		To:          periodEnd,
		Granularity: meteringdomain.GranularityMonthly,
	})
	if err != nil {
		return nil, err
	}

	metrics := metering.ParseConsumption(resp, company.NeonProjectID)
	estimated := metering.EstimateCostCents(metrics, s.pricing.Get())
	billed := metering.ApplyMarkup(estimated, company.MarkupPercent)

	now := s.clock.Now()
	record := &domain.UsageRecord{
		ID:          s.genID.Generate(),
		CompanyID:   company.ID,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,

		ComputeUnitSeconds:         metrics.ComputeUnitSeconds,
		RootBranchBytesMonth:       metrics.RootBranchBytesMonth,
		ChildBranchBytesMonth:      metrics.ChildBranchBytesMonth,
		InstantRestoreBytesMonth:   metrics.InstantRestoreBytesMonth,
		PublicNetworkTransferBytes: metrics.PublicNetworkTransferBytes,
		PrivateNetworkTransfer:     metrics.PrivateNetworkTransfer,
		WrittenDataBytes:           metrics.WrittenDataBytes,
		ExtraBranchesMonth:         metrics.ExtraBranchesMonth,

		EstimatedCostCents: estimated,
		BilledAmountCents:  billed,
		FetchedAt:          now,
	}

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, err
	}

	stored, err := s.repo.FindByCompanyAndPeriod(ctx, company.ID, periodStart)
	if err != nil {
		return nil, err
	}

	s.log.Info("usage snapshot stored",
		zap.String("company_id", company.ID.String()),
		zap.Time("period_start", periodStart),
		zap.Int64("billed_cents", billed),
	)
	return stored, nil
}

// FetchAndStoreAll processes ACTIVE companies one at a time. The sequential
// loop and the inter-call delay keep us under Neon's 50 requests/minute
// ceiling; do not parallelize this.
func (s *Service) FetchAndStoreAll(ctx context.Context) ([]domain.FetchResult, error) {
	companies, err := s.companySvc.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.FetchResult, 0, len(companies))
	for _, company := range companies {
		result := domain.FetchResult{CompanyID: company.ID, Name: company.Name, Success: true}
		if _, err := s.FetchAndStore(ctx, company.ID, nil); err != nil {
			result.Success = false
			result.Error = err.Error()
			s.log.Warn("usage fetch failed",
				zap.String("company_id", company.ID.String()),
				zap.Error(err),
			)
		}
		results = append(results, result)

		if len(companies) > s.delayThreshold {
			s.sleep(s.delay)
		}
	}
	return results, nil
}

func (s *Service) History(ctx context.Context, companyID snowflake.ID, months int) ([]domain.HistoryEntry, error) {
	if months <= 0 {
		months = 12
	}
	since := monthStart(s.clock.Now()).AddDate(0, -months, 0)

	records, err := s.repo.ListByCompanySince(ctx, companyID, since)
	if err != nil {
		return nil, err
	}

	const gib = 1024 * 1024 * 1024
	entries := make([]domain.HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, domain.HistoryEntry{
			UsageRecord:  r,
			PeriodLabel:  r.PeriodStart.Format("Jan 2006"),
			ComputeHours: r.ComputeUnitSeconds / 3600,
			StorageGiB:   (r.RootBranchBytesMonth + r.ChildBranchBytesMonth) / gib,
		})
	}
	return entries, nil
}

// monthStart truncates t to the first instant of its calendar month in UTC.
// Month arithmetic must start from here: AddDate on a day-29 to day-31 input
// normalizes the overflow and lands in the wrong month.
func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthBounds returns the inclusive bounds of t's calendar month in UTC.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := monthStart(t)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end
}
