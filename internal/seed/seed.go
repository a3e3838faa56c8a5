// Package seed provisions demo data for local development. It only runs when
// SEED_DEMO=true and never touches rows that already exist.
package seed

import (
	"context"
	"errors"
	"time"

	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/currency"
	"github.com/Bando358/neonmeter/internal/secrets"
	usagedomain "github.com/Bando358/neonmeter/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(Run),
)

const (
	demoCompanyName = "Acme Analytics"
	demoCompanySlug = "acme-analytics"
	demoProjectID   = "proj-demo-acme"
	demoAPIKey      = "neon_api_key_demo"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Encryptor *secrets.Encryptor
	Cfg       config.Config
}

func Run(p Params) error {
	if !p.Cfg.SeedDemo {
		return nil
	}
	log := p.Log.Named("seed")

	ctx := context.Background()
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := ensureDemoCompany(ctx, tx, p.GenID, p.Encryptor)
		if err != nil {
			return err
		}
		return ensureDemoUsage(ctx, tx, p.GenID, company.ID)
	})
	if err != nil {
		return err
	}

	log.Info("demo data seeded", zap.String("company", demoCompanySlug))
	return nil
}

func ensureDemoCompany(ctx context.Context, tx *gorm.DB, node *snowflake.Node, enc *secrets.Encryptor) (*companydomain.Company, error) {
	var company companydomain.Company
	err := tx.WithContext(ctx).Where("slug = ?", demoCompanySlug).First(&company).Error
	if err == nil {
		return &company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cipher, iv, tag, err := enc.Encrypt(demoAPIKey)
	if err != nil {
		return nil, err
	}

	email := "billing@acme.example"
	now := time.Now().UTC()
	company = companydomain.Company{
		ID:               node.Generate(),
		Name:             demoCompanyName,
		Slug:             demoCompanySlug,
		Email:            &email,
		NeonProjectID:    demoProjectID,
		NeonAPIKeyCipher: cipher,
		NeonAPIKeyIV:     iv,
		NeonAPIKeyTag:    tag,
		MarkupPercent:    20,
		Currency:         currency.USD,
		Status:           companydomain.StatusActive,
		Metadata:         datatypes.JSONMap{"seeded": true},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func ensureDemoUsage(ctx context.Context, tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) error {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	periodStart := monthStart.AddDate(0, -1, 0)
	periodEnd := monthStart.Add(-time.Second)

	var count int64
	if err := tx.WithContext(ctx).Model(&usagedomain.UsageRecord{}).
		Where("company_id = ? AND period_start = ?", companyID, periodStart).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	record := usagedomain.UsageRecord{
		ID:                 node.Generate(),
		CompanyID:          companyID,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		ComputeUnitSeconds: 360000,
		WrittenDataBytes:   5e9,
		EstimatedCostCents: 374,
		BilledAmountCents:  449,
		FetchedAt:          now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return tx.WithContext(ctx).Create(&record).Error
}
