package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bando358/neonmeter/internal/invoice/domain"
	"github.com/Bando358/neonmeter/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &repo{db: gdb}
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).First(&invoice, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByCompanyAndPeriod(ctx context.Context, companyID snowflake.ID, periodStart time.Time) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := r.db.WithContext(ctx).
		First(&invoice, "company_id = ? AND period_start = ?", companyID, periodStart.UTC()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, companyID *snowflake.ID) ([]domain.Invoice, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if companyID != nil {
		query = query.Where("company_id = ?", *companyID)
	}
	var invoices []domain.Invoice
	err := query.Find(&invoices).Error
	return invoices, err
}

const numberAllocRetries = 3

// CreateNumbered allocates the next NM-YYYY-MM-NNN number by counting
// existing invoices in the period's year-month inside the same transaction
// as the insert. The unique index on number turns a concurrent allocation of
// the same number into a duplicate-key error, which we retry.
func (r *repo) CreateNumbered(ctx context.Context, invoice *domain.Invoice) error {
	var lastErr error
	for attempt := 0; attempt < numberAllocRetries; attempt++ {
		lastErr = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			monthStart := time.Date(invoice.PeriodStart.Year(), invoice.PeriodStart.Month(), 1, 0, 0, 0, 0, time.UTC)
			nextMonth := monthStart.AddDate(0, 1, 0)

			var count int64
			if err := tx.Model(&domain.Invoice{}).
				Where("period_start >= ? AND period_start < ?", monthStart, nextMonth).
				Count(&count).Error; err != nil {
				return err
			}

			invoice.Number = fmt.Sprintf("NM-%04d-%02d-%03d",
				monthStart.Year(), int(monthStart.Month()), count+1)

			return tx.Create(invoice).Error
		})
		if lastErr == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
