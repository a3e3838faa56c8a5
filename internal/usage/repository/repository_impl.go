package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Bando358/neonmeter/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByCompanyAndPeriod(ctx context.Context, companyID snowflake.ID, periodStart time.Time) (*domain.UsageRecord, error) {
	var record domain.UsageRecord
	err := r.db.WithContext(ctx).
		First(&record, "company_id = ? AND period_start = ?", companyID, periodStart.UTC()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repo) Upsert(ctx context.Context, record *domain.UsageRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "company_id"}, {Name: "period_start"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"period_end",
			"compute_unit_seconds",
			"root_branch_bytes_month",
			"child_branch_bytes_month",
			"instant_restore_bytes_month",
			"public_network_transfer_bytes",
			"private_network_transfer",
			"written_data_bytes",
			"extra_branches_month",
			"estimated_cost_cents",
			"billed_amount_cents",
			"fetched_at",
			"updated_at",
		}),
	}).Create(record).Error
}

func (r *repo) ListByCompanySince(ctx context.Context, companyID snowflake.ID, since time.Time) ([]domain.UsageRecord, error) {
	var records []domain.UsageRecord
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND period_start >= ?", companyID, since.UTC()).
		Order("period_start DESC").
		Find(&records).Error
	return records, err
}
