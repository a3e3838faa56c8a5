package main

import (
	"github.com/Bando358/neonmeter/internal/auth"
	"github.com/Bando358/neonmeter/internal/clock"
	"github.com/Bando358/neonmeter/internal/company"
	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/dunning"
	"github.com/Bando358/neonmeter/internal/invoice"
	"github.com/Bando358/neonmeter/internal/metering"
	"github.com/Bando358/neonmeter/internal/migration"
	"github.com/Bando358/neonmeter/internal/payment"
	"github.com/Bando358/neonmeter/internal/secrets"
	"github.com/Bando358/neonmeter/internal/seed"
	"github.com/Bando358/neonmeter/internal/server"
	"github.com/Bando358/neonmeter/internal/usage"
	"github.com/Bando358/neonmeter/pkg/db"
	"github.com/Bando358/neonmeter/pkg/log"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		secrets.Module,
		auth.Module,
		migration.Module,
		seed.Module,

		// Domains
		company.Module,
		metering.Module,
		usage.Module,
		invoice.Module,
		payment.Module,
		dunning.Module,

		server.Module,
	)

	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
