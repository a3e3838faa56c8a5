package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/company/repository"
	"github.com/Bando358/neonmeter/internal/currency"
	invoicedomain "github.com/Bando358/neonmeter/internal/invoice/domain"
	paymentdomain "github.com/Bando358/neonmeter/internal/payment/domain"
	"github.com/Bando358/neonmeter/internal/secrets"
	usagedomain "github.com/Bando358/neonmeter/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:company_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, gdb.AutoMigrate(
		&domain.Company{},
		&usagedomain.UsageRecord{},
		&invoicedomain.Invoice{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	enc, err := secrets.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)

	svc := NewService(Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(gdb),
		Encryptor: enc,
	})
	return svc, gdb
}

func markupOf(v float64) *float64 { return &v }

func validCreateRequest() domain.CreateCompanyRequest {
	return domain.CreateCompanyRequest{
		Name:          "Acme Analytics",
		Email:         "billing@acme.example",
		NeonProjectID: "proj-acme",
		NeonAPIKey:    "neon_key_plaintext",
		MarkupPercent: markupOf(20),
		Currency:      "USD",
	}
}

func TestCreateEncryptsAPIKey(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	company, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, company.NeonAPIKeyCipher)
	assert.NotEmpty(t, company.NeonAPIKeyIV)
	assert.NotEmpty(t, company.NeonAPIKeyTag)
	assert.NotContains(t, company.NeonAPIKeyCipher, "neon_key_plaintext")

	plain, err := svc.DecryptAPIKey(ctx, company)
	require.NoError(t, err)
	assert.Equal(t, "neon_key_plaintext", plain)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		mutate  func(*domain.CreateCompanyRequest)
		wantErr error
	}{
		{name: "short name", mutate: func(r *domain.CreateCompanyRequest) { r.Name = "A" }, wantErr: domain.ErrInvalidCompanyName},
		{name: "missing project", mutate: func(r *domain.CreateCompanyRequest) { r.NeonProjectID = " " }, wantErr: domain.ErrMissingProjectID},
		{name: "missing key", mutate: func(r *domain.CreateCompanyRequest) { r.NeonAPIKey = "" }, wantErr: domain.ErrMissingAPIKey},
		{name: "negative markup", mutate: func(r *domain.CreateCompanyRequest) { r.MarkupPercent = markupOf(-1) }, wantErr: domain.ErrInvalidMarkup},
		{name: "markup above 100", mutate: func(r *domain.CreateCompanyRequest) { r.MarkupPercent = markupOf(101) }, wantErr: domain.ErrInvalidMarkup},
		{name: "unknown currency", mutate: func(r *domain.CreateCompanyRequest) { r.Currency = "GBP" }, wantErr: currency.ErrUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			_, err := svc.Create(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	req := validCreateRequest()
	req.MarkupPercent = nil
	req.Currency = ""
	company, err := svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 20.0, company.MarkupPercent)
	assert.Equal(t, currency.USD, company.Currency)
	assert.Equal(t, domain.StatusActive, company.Status)
	assert.Equal(t, "acme-analytics", company.Slug)
}

func TestCreateKeepsExplicitZeroMarkup(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	// 0% means at-cost billing; only an absent markup takes the default.
	req := validCreateRequest()
	req.MarkupPercent = markupOf(0)
	company, err := svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 0.0, company.MarkupPercent)
}

func TestCreateSlugCollisionGetsSuffix(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "acme-analytics", first.Slug)
	assert.NotEqual(t, first.Slug, second.Slug)
	assert.Contains(t, second.Slug, "acme-analytics-")
}

func TestUpdateKeepsKeyWhenEmpty(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	company, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)
	originalCipher := company.NeonAPIKeyCipher

	empty := ""
	updated, err := svc.Update(ctx, company.ID, domain.UpdateCompanyRequest{NeonAPIKey: &empty})
	require.NoError(t, err)
	assert.Equal(t, originalCipher, updated.NeonAPIKeyCipher)

	fresh := "rotated_key"
	updated, err = svc.Update(ctx, company.ID, domain.UpdateCompanyRequest{NeonAPIKey: &fresh})
	require.NoError(t, err)
	assert.NotEqual(t, originalCipher, updated.NeonAPIKeyCipher)

	plain, err := svc.DecryptAPIKey(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, "rotated_key", plain)
}

func TestStatusTransitions(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	company, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	suspend := domain.StatusSuspended
	_, err = svc.Update(ctx, company.ID, domain.UpdateCompanyRequest{Status: &suspend})
	require.NoError(t, err)

	reactivate := domain.StatusActive
	_, err = svc.Update(ctx, company.ID, domain.UpdateCompanyRequest{Status: &reactivate})
	require.NoError(t, err)

	cancel := domain.StatusCancelled
	_, err = svc.Update(ctx, company.ID, domain.UpdateCompanyRequest{Status: &cancel})
	require.NoError(t, err)

	// CANCELLED is terminal.
	_, err = svc.Update(ctx, company.ID, domain.UpdateCompanyRequest{Status: &reactivate})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestListActiveExcludesSuspended(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	active, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	req := validCreateRequest()
	req.Name = "Beta Corp"
	suspendMe, err := svc.Create(ctx, req)
	require.NoError(t, err)
	suspend := domain.StatusSuspended
	_, err = svc.Update(ctx, suspendMe.ID, domain.UpdateCompanyRequest{Status: &suspend})
	require.NoError(t, err)

	companies, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, active.ID, companies[0].ID)
}

func TestDeleteCascades(t *testing.T) {
	svc, gdb := setupService(t)
	ctx := context.Background()

	company, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	now := time.Now().UTC()
	periodStart := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	record := usagedomain.UsageRecord{
		ID: node.Generate(), CompanyID: company.ID,
		PeriodStart: periodStart, PeriodEnd: periodStart.AddDate(0, 1, 0).Add(-time.Second),
		FetchedAt: now,
	}
	require.NoError(t, gdb.Create(&record).Error)

	invoice := invoicedomain.Invoice{
		ID: node.Generate(), Number: "NM-2026-07-001", CompanyID: company.ID,
		PeriodStart: periodStart, PeriodEnd: record.PeriodEnd,
		AmountCents: 449, Currency: currency.USD,
		Status: invoicedomain.StatusPending, DueDate: now.AddDate(0, 0, 15),
	}
	require.NoError(t, gdb.Create(&invoice).Error)

	payment := paymentdomain.Payment{
		ID: node.Generate(), InvoiceID: invoice.ID,
		Method: paymentdomain.MethodCard, Provider: paymentdomain.ProviderStripe,
		ExternalTransactionID: "pi_test_1", AmountCents: 449, Currency: currency.USD,
		Status: paymentdomain.StatusPending,
	}
	require.NoError(t, gdb.Create(&payment).Error)

	require.NoError(t, svc.Delete(ctx, company.ID))

	for _, table := range []string{"companies", "usage_records", "invoices", "payments"} {
		var count int64
		require.NoError(t, gdb.Table(table).Count(&count).Error)
		assert.Zero(t, count, "table %s not emptied", table)
	}

	assert.ErrorIs(t, svc.Delete(ctx, company.ID), domain.ErrNotFound)
}
