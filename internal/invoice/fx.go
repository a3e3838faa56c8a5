package invoice

import (
	"github.com/Bando358/neonmeter/internal/invoice/repository"
	"github.com/Bando358/neonmeter/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
