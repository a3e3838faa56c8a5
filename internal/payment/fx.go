package payment

import (
	"github.com/Bando358/neonmeter/internal/payment/adapters/fedapay"
	"github.com/Bando358/neonmeter/internal/payment/adapters/stripe"
	"github.com/Bando358/neonmeter/internal/payment/domain"
	"github.com/Bando358/neonmeter/internal/payment/repository"
	"github.com/Bando358/neonmeter/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(
		repository.Provide,
		stripe.NewClient,
		fedapay.NewClient,
		func(c *stripe.Client) domain.CardGateway { return c },
		func(c *fedapay.Client) domain.MobileMoneyGateway { return c },
		service.NewService,
	),
)
