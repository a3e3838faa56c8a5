package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Bando358/neonmeter/internal/auth"
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/dunning"
	invoicedomain "github.com/Bando358/neonmeter/internal/invoice/domain"
	paymentdomain "github.com/Bando358/neonmeter/internal/payment/domain"
	usagedomain "github.com/Bando358/neonmeter/internal/usage/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewMetrics),
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, metrics *Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(MetricsMiddleware(metrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, metrics *Metrics) *gin.Engine {
	return NewEngine(log, metrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	tokens     *auth.TokenManager
	jobsSecret string
	metrics    *Metrics

	companySvc companydomain.Service
	usageSvc   usagedomain.Service
	invoiceSvc invoicedomain.Service
	paymentSvc paymentdomain.Service
	card       paymentdomain.CardGateway
	mobile     paymentdomain.MobileMoneyGateway
	sweeper    *dunning.Sweeper
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Tokens     *auth.TokenManager
	Metrics    *Metrics
	CompanySvc companydomain.Service
	UsageSvc   usagedomain.Service
	InvoiceSvc invoicedomain.Service
	PaymentSvc paymentdomain.Service
	Card       paymentdomain.CardGateway
	Mobile     paymentdomain.MobileMoneyGateway
	Sweeper    *dunning.Sweeper
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		tokens:     p.Tokens,
		jobsSecret: p.Cfg.JobsSecret,
		metrics:    p.Metrics,
		companySvc: p.CompanySvc,
		usageSvc:   p.UsageSvc,
		invoiceSvc: p.InvoiceSvc,
		paymentSvc: p.PaymentSvc,
		card:       p.Card,
		mobile:     p.Mobile,
		sweeper:    p.Sweeper,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerJobRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.AuthRequired())

	companies := api.Group("/companies")
	companies.GET("", s.RequireAdmin(), s.ListCompanies)
	companies.POST("", s.RequireAdmin(), s.CreateCompany)
	companies.GET("/:id", s.GetCompanyByID)
	companies.PATCH("/:id", s.RequireAdmin(), s.UpdateCompany)
	companies.DELETE("/:id", s.RequireAdmin(), s.DeleteCompany)
	companies.GET("/:id/usage", s.GetCompanyUsageHistory)

	api.POST("/usage/fetch", s.RequireAdmin(), s.FetchUsage)

	api.GET("/invoices", s.ListInvoices)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/payments/card", s.InitiateCardPayment)
	api.POST("/invoices/:id/payments/mobile-money", s.InitiateMobileMoneyPayment)

	api.GET("/payments", s.ListPayments)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)
	s.engine.POST("/webhooks/fedapay", s.HandleFedaPayWebhook)
}

func (s *Server) registerJobRoutes() {
	jobs := s.engine.Group("/jobs")
	jobs.Use(s.JobsAuth())
	jobs.POST("/usage-fetch", s.RunUsageFetchJob)
	jobs.POST("/monthly-billing", s.RunMonthlyBillingJob)
	jobs.POST("/overdue-sweep", s.RunOverdueSweepJob)
}
