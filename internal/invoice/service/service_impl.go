package service

import (
	"context"
	"time"

	"github.com/Bando358/neonmeter/internal/auth"
	"github.com/Bando358/neonmeter/internal/clock"
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/invoice/domain"
	usagedomain "github.com/Bando358/neonmeter/internal/usage/domain"
	"github.com/Bando358/neonmeter/pkg/db"
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
	UsageRepo  usagedomain.Repository
	CompanySvc companydomain.Service
	Cfg        config.Config
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	usageRepo  usagedomain.Repository
	companySvc companydomain.Service
	dueDays    int
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		usageRepo:  p.UsageRepo,
		companySvc: p.CompanySvc,
		dueDays:    p.Cfg.InvoiceDueDays,
	}
}

func (s *Service) Generate(ctx context.Context, companyID snowflake.ID, periodStart, periodEnd time.Time) (*domain.Invoice, error) {
	monthStart := time.Date(periodStart.Year(), periodStart.Month(), 1, 0, 0, 0, 0, time.UTC)

	record, err := s.usageRepo.FindByCompanyAndPeriod(ctx, companyID, monthStart)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNoUsageRecord
	}

	// Zero-usage periods are not invoiced.
	if record.BilledAmountCents <= 0 {
		return nil, nil
	}

	if existing, err := s.repo.FindByCompanyAndPeriod(ctx, companyID, monthStart); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	company, err := s.companySvc.GetByID(ctx, companyID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoice := &domain.Invoice{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		PeriodStart: monthStart,
		PeriodEnd:   record.PeriodEnd,
		AmountCents: record.BilledAmountCents,
		Currency:    company.Currency,
		Status:      domain.StatusPending,
		DueDate:     now.AddDate(0, 0, s.dueDays),
	}

	if err := s.repo.CreateNumbered(ctx, invoice); err != nil {
		// A concurrent run may have created the period's invoice first.
		if db.IsDuplicateKeyErr(err) {
			if existing, findErr := s.repo.FindByCompanyAndPeriod(ctx, companyID, monthStart); findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}

	s.log.Info("invoice generated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.String("company_id", companyID.String()),
		zap.Int64("amount_cents", invoice.AmountCents),
	)
	return invoice, nil
}

func (s *Service) RunMonthlyBilling(ctx context.Context) ([]domain.BillingResult, error) {
	// Truncate to the month start before stepping back: subtracting a month
	// from a day-29 to day-31 date normalizes into the current month.
	now := s.clock.Now().UTC()
	periodStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	periodEnd := periodStart.AddDate(0, 1, 0).Add(-time.Second)

	companies, err := s.companySvc.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]domain.BillingResult, 0, len(companies))
	for _, company := range companies {
		result := domain.BillingResult{CompanyID: company.ID, Name: company.Name}
		invoice, err := s.Generate(ctx, company.ID, periodStart, periodEnd)
		switch {
		case err != nil:
			result.Error = err.Error()
			s.log.Warn("monthly billing failed for company",
				zap.String("company_id", company.ID.String()),
				zap.Error(err),
			)
		case invoice == nil:
			result.Skipped = true
		default:
			id := invoice.ID
			result.InvoiceID = &id
		}
		results = append(results, result)
	}
	return results, nil
}

func (s *Service) GetByID(ctx context.Context, actor auth.Actor, id snowflake.ID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessCompany(invoice.CompanyID) {
		return nil, auth.ErrForbidden
	}
	return invoice, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, companyID *snowflake.ID) ([]domain.Invoice, error) {
	if actor.Role == auth.RoleCompanyAdmin {
		own := actor.CompanyID
		companyID = &own
	}
	return s.repo.List(ctx, companyID)
}
