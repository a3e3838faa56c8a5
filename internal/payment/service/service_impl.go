package service

import (
	"context"
	"fmt"

	"github.com/Bando358/neonmeter/internal/auth"
	"github.com/Bando358/neonmeter/internal/clock"
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/currency"
	invoicedomain "github.com/Bando358/neonmeter/internal/invoice/domain"
	"github.com/Bando358/neonmeter/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
	CompanyRepo companydomain.Repository
	Card        domain.CardGateway
	MobileMoney domain.MobileMoneyGateway
	Cfg         config.Config
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
	companyRepo companydomain.Repository
	card        domain.CardGateway
	mobileMoney domain.MobileMoneyGateway
	callbackURL string
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		companyRepo: p.CompanyRepo,
		card:        p.Card,
		mobileMoney: p.MobileMoney,
		callbackURL: p.Cfg.AppBaseURL + "/webhooks/fedapay",
	}
}

// payableInvoice loads the invoice and enforces the initiation preconditions
// shared by both rails.
func (s *Service) payableInvoice(ctx context.Context, actor auth.Actor, invoiceID snowflake.ID) (*invoicedomain.Invoice, *companydomain.Company, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, err
	}
	if !invoice.Status.Payable() {
		return nil, nil, invoicedomain.ErrNotPayable
	}
	if !actor.CanAccessCompany(invoice.CompanyID) {
		return nil, nil, auth.ErrForbidden
	}

	company, err := s.companyRepo.FindByID(ctx, invoice.CompanyID)
	if err != nil {
		return nil, nil, err
	}
	return invoice, company, nil
}

func (s *Service) InitiateCardPayment(ctx context.Context, actor auth.Actor, invoiceID snowflake.ID) (*domain.CardInitiation, error) {
	invoice, company, err := s.payableInvoice(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.ensureStripeCustomer(ctx, company)
	if err != nil {
		return nil, err
	}

	intent, err := s.card.CreateIntent(ctx, domain.IntentParams{
		CustomerID:    customerID,
		AmountMinor:   invoice.AmountCents,
		Currency:      invoice.Currency,
		InvoiceID:     invoice.ID,
		InvoiceNumber: invoice.Number,
		CompanyID:     invoice.CompanyID,
	})
	if err != nil {
		return nil, err
	}

	// The payment row must exist before the caller sees the client secret:
	// the webhook can only reconcile transactions it can find.
	payment := &domain.Payment{
		ID:                    s.genID.Generate(),
		InvoiceID:             invoice.ID,
		Method:                domain.MethodCard,
		Provider:              domain.ProviderStripe,
		ExternalTransactionID: intent.ID,
		AmountCents:           invoice.AmountCents,
		Currency:              invoice.Currency,
		Status:                domain.StatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info("card payment initiated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("payment_intent_id", intent.ID),
	)
	return &domain.CardInitiation{PaymentIntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

func (s *Service) ensureStripeCustomer(ctx context.Context, company *companydomain.Company) (string, error) {
	if company.StripeCustomerID != nil && *company.StripeCustomerID != "" {
		return *company.StripeCustomerID, nil
	}

	email := ""
	if company.Email != nil {
		email = *company.Email
	}
	customerID, err := s.card.EnsureCustomer(ctx, domain.CustomerParams{
		CompanyID: company.ID,
		Name:      company.Name,
		Email:     email,
	})
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}

	if err := s.companyRepo.SetStripeCustomerID(ctx, company.ID, customerID); err != nil {
		return "", err
	}
	return customerID, nil
}

func (s *Service) InitiateMobileMoneyPayment(ctx context.Context, actor auth.Actor, invoiceID snowflake.ID, phone, customerName, country string) (*domain.MobileMoneyInitiation, error) {
	invoice, company, err := s.payableInvoice(ctx, actor, invoiceID)
	if err != nil {
		return nil, err
	}

	email := ""
	if company.Email != nil {
		email = *company.Email
	}

	transaction, err := s.mobileMoney.CreateTransaction(ctx, domain.TransactionParams{
		Amount:          currency.ToMajorUnits(invoice.AmountCents, invoice.Currency),
		Currency:        invoice.Currency,
		Description:     fmt.Sprintf("Invoice %s - %s", invoice.Number, company.Name),
		CallbackURL:     s.callbackURL,
		CustomerName:    customerName,
		CustomerEmail:   email,
		CustomerPhone:   phone,
		CustomerCountry: country,
	})
	if err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:                    s.genID.Generate(),
		InvoiceID:             invoice.ID,
		Method:                domain.MethodMobileMoney,
		Provider:              domain.ProviderFedaPay,
		ExternalTransactionID: transaction.TransactionID,
		AmountCents:           invoice.AmountCents,
		Currency:              invoice.Currency,
		Status:                domain.StatusPending,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, err
	}

	s.log.Info("mobile money payment initiated",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("transaction_id", transaction.TransactionID),
	)
	return &domain.MobileMoneyInitiation{
		TransactionID: transaction.TransactionID,
		PaymentURL:    transaction.PaymentURL,
	}, nil
}

// HandleApproved settles exactly once: the payment and invoice updates commit
// together or not at all, and an already-SUCCEEDED payment is left untouched,
// original paidAt included.
func (s *Service) HandleApproved(ctx context.Context, transactionID string) error {
	payment, err := s.repo.FindByExternalID(ctx, transactionID)
	if err != nil {
		return err
	}
	if payment.Status == domain.StatusSucceeded {
		return nil
	}

	now := s.clock.Now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Payment{}).
			Where("id = ?", payment.ID).
			Updates(map[string]any{
				"status":     domain.StatusSucceeded,
				"paid_at":    now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&invoicedomain.Invoice{}).
			Where("id = ?", payment.InvoiceID).
			Updates(map[string]any{
				"status":     invoicedomain.StatusPaid,
				"paid_at":    now,
				"updated_at": now,
			}).Error
	})
	if err != nil {
		return err
	}

	s.log.Info("payment settled",
		zap.String("transaction_id", transactionID),
		zap.String("invoice_id", payment.InvoiceID.String()),
	)
	return nil
}

func (s *Service) HandleDeclined(ctx context.Context, transactionID, reason string) error {
	payment, err := s.repo.FindByExternalID(ctx, transactionID)
	if err != nil {
		return err
	}
	// A settled payment is never demoted by a late decline event.
	if payment.Status == domain.StatusSucceeded {
		return nil
	}

	if reason == "" {
		reason = "Payment failed"
	}
	now := s.clock.Now()
	if err := s.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"status":         domain.StatusFailed,
			"failure_reason": reason,
			"updated_at":     now,
		}).Error; err != nil {
		return err
	}

	s.log.Info("payment declined",
		zap.String("transaction_id", transactionID),
		zap.String("reason", reason),
	)
	return nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, companyID *snowflake.ID) ([]domain.Payment, error) {
	if actor.Role == auth.RoleCompanyAdmin {
		own := actor.CompanyID
		companyID = &own
	}
	return s.repo.List(ctx, companyID)
}
