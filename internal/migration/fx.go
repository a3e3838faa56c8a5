package migration

import (
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/config"
	invoicedomain "github.com/Bando358/neonmeter/internal/invoice/domain"
	paymentdomain "github.com/Bando358/neonmeter/internal/payment/domain"
	usagedomain "github.com/Bando358/neonmeter/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// Versioned SQL migrations run against postgres. Sqlite is only
		// used for local scratch setups, where AutoMigrate is enough.
		if cfg.DBType != "postgres" {
			return conn.AutoMigrate(
				&companydomain.Company{},
				&usagedomain.UsageRecord{},
				&invoicedomain.Invoice{},
				&paymentdomain.Payment{},
			)
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
