package usage

import (
	"github.com/Bando358/neonmeter/internal/usage/repository"
	"github.com/Bando358/neonmeter/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
