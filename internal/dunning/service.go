// Package dunning holds the time-driven overdue transitions: invoices past due
// become OVERDUE, and companies that leave an invoice overdue beyond the grace
// period are suspended.
package dunning

import (
	"context"

	"github.com/Bando358/neonmeter/internal/clock"
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/config"
	invoicedomain "github.com/Bando358/neonmeter/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("dunning",
	fx.Provide(NewSweeper),
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Cfg   config.Config
}

type Sweeper struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	graceDays int
}

// SweepResult reports the counts of one sweep run.
type SweepResult struct {
	MarkedOverdue      int64 `json:"marked_overdue"`
	CompaniesSuspended int64 `json:"companies_suspended"`
}

func NewSweeper(p Params) *Sweeper {
	return &Sweeper{
		db:        p.DB,
		log:       p.Log.Named("dunning.sweeper"),
		clock:     p.Clock,
		graceDays: p.Cfg.OverdueGraceDays,
	}
}

// Sweep is a pure set-based transition: re-running with no new overdue
// invoices is a no-op.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	var result SweepResult

	overdue := s.db.WithContext(ctx).
		Model(&invoicedomain.Invoice{}).
		Where("status = ? AND due_date < ?", invoicedomain.StatusPending, now).
		Updates(map[string]any{
			"status":     invoicedomain.StatusOverdue,
			"updated_at": now,
		})
	if overdue.Error != nil {
		return result, overdue.Error
	}
	result.MarkedOverdue = overdue.RowsAffected

	graceCutoff := now.AddDate(0, 0, -s.graceDays)
	suspended := s.db.WithContext(ctx).
		Model(&companydomain.Company{}).
		Where("status = ?", companydomain.StatusActive).
		Where(`id IN (
			SELECT DISTINCT company_id FROM invoices
			WHERE status = ? AND due_date < ?
		)`, invoicedomain.StatusOverdue, graceCutoff).
		Updates(map[string]any{
			"status":     companydomain.StatusSuspended,
			"updated_at": now,
		})
	if suspended.Error != nil {
		return result, suspended.Error
	}
	result.CompaniesSuspended = suspended.RowsAffected

	if result.MarkedOverdue > 0 || result.CompaniesSuspended > 0 {
		s.log.Info("overdue sweep applied",
			zap.Int64("marked_overdue", result.MarkedOverdue),
			zap.Int64("companies_suspended", result.CompaniesSuspended),
		)
	}
	return result, nil
}
