package company

import (
	"github.com/Bando358/neonmeter/internal/company/repository"
	"github.com/Bando358/neonmeter/internal/company/service"
	"go.uber.org/fx"
)

var Module = fx.Module("company.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
