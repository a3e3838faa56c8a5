package repository

import (
	"context"
	"errors"

	"github.com/Bando358/neonmeter/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) FindByExternalID(ctx context.Context, externalTransactionID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).
		First(&payment, "external_transaction_id = ?", externalTransactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repo) Create(ctx context.Context, payment *domain.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repo) List(ctx context.Context, companyID *snowflake.ID) ([]domain.Payment, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if companyID != nil {
		query = query.Where(
			"invoice_id IN (SELECT id FROM invoices WHERE company_id = ?)", *companyID,
		)
	}
	var payments []domain.Payment
	err := query.Find(&payments).Error
	return payments, err
}
