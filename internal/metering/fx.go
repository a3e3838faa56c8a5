package metering

import (
	"github.com/Bando358/neonmeter/internal/metering/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("metering",
	fx.Provide(NewHTTPClient),
	fx.Provide(func(c *HTTPClient) domain.Client { return c }),
)
