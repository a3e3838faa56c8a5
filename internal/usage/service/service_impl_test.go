package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Bando358/neonmeter/internal/clock"
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	companyrepo "github.com/Bando358/neonmeter/internal/company/repository"
	companyservice "github.com/Bando358/neonmeter/internal/company/service"
	"github.com/Bando358/neonmeter/internal/config"
	invoicedomain "github.com/Bando358/neonmeter/internal/invoice/domain"
	meteringdomain "github.com/Bando358/neonmeter/internal/metering/domain"
	paymentdomain "github.com/Bando358/neonmeter/internal/payment/domain"
	"github.com/Bando358/neonmeter/internal/secrets"
	"github.com/Bando358/neonmeter/internal/usage/domain"
	"github.com/Bando358/neonmeter/internal/usage/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// fakeMeteringClient serves canned per-project compute seconds and can fail
// for chosen projects.
type fakeMeteringClient struct {
	computeSeconds map[string]float64
	failProjects   map[string]bool
	calls          int
}

func (f *fakeMeteringClient) FetchConsumption(ctx context.Context, params meteringdomain.FetchParams) (*meteringdomain.ConsumptionResponse, error) {
	f.calls++
	projectID := params.ProjectIDs[0]
	if f.failProjects[projectID] {
		return nil, &meteringdomain.UpstreamError{Status: 429, Body: "rate limited"}
	}
	return &meteringdomain.ConsumptionResponse{
		Projects: []meteringdomain.Project{
			{
				ProjectID: projectID,
				Periods: []meteringdomain.Period{
					{Consumption: []meteringdomain.ConsumptionEntry{
						{Metrics: []meteringdomain.Metric{
							{MetricName: "compute_unit_seconds", Value: f.computeSeconds[projectID]},
						}},
					}},
				},
			},
		},
	}, nil
}

type usageFixture struct {
	svc        *Service
	companySvc companydomain.Service
	metering   *fakeMeteringClient
	clock      *clock.FakeClock
	db         *gorm.DB
	sleeps     []time.Duration
}

func setupUsage(t *testing.T) *usageFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:usage_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(
		&companydomain.Company{},
		&domain.UsageRecord{},
		&invoicedomain.Invoice{},
		&paymentdomain.Payment{},
	))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)
	enc, err := secrets.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)

	companySvc := companyservice.NewService(companyservice.Params{
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      companyrepo.Provide(gdb),
		Encryptor: enc,
	})

	metering := &fakeMeteringClient{
		computeSeconds: map[string]float64{},
		failProjects:   map[string]bool{},
	}

	fake := clock.NewFakeClock(time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC))
	f := &usageFixture{companySvc: companySvc, metering: metering, clock: fake, db: gdb}
	svc := NewService(Params{
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Repo:       repository.Provide(gdb),
		CompanySvc: companySvc,
		Metering:   metering,
		Pricing:    config.NewStaticPricingHolder(config.DefaultPricingRates()),
		Cfg: config.Config{
			FetchDelayMillis:    1500,
			FetchDelayThreshold: 10,
		},
	}).(*Service)
	svc.sleep = func(d time.Duration) { f.sleeps = append(f.sleeps, d) }
	f.svc = svc
	return f
}

func (f *usageFixture) createCompany(t *testing.T, name, projectID string) *companydomain.Company {
	t.Helper()
	company, err := f.companySvc.Create(context.Background(), companydomain.CreateCompanyRequest{
		Name:          name,
		NeonProjectID: projectID,
		NeonAPIKey:    "neon_key",
		Currency:      "USD",
	})
	require.NoError(t, err)
	return company
}

func TestFetchAndStorePricesSnapshot(t *testing.T) {
	f := setupUsage(t)
	company := f.createCompany(t, "Acme Analytics", "proj-a")
	f.metering.computeSeconds["proj-a"] = 360000

	period := time.Date(2026, 7, 15, 10, 0, 0, 0, time.UTC)
	record, err := f.svc.FetchAndStore(context.Background(), company.ID, &period)
	require.NoError(t, err)

	assert.True(t, record.PeriodStart.Equal(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, float64(360000), record.ComputeUnitSeconds)
	assert.Equal(t, int64(374), record.EstimatedCostCents)
	assert.Equal(t, int64(449), record.BilledAmountCents)
}

func TestFetchAndStoreDefaultsToPreviousMonth(t *testing.T) {
	f := setupUsage(t)
	company := f.createCompany(t, "Acme Analytics", "proj-a")
	f.metering.computeSeconds["proj-a"] = 1000

	cases := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{
			name:      "mid month",
			now:       time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			// Day 31 after a 28-day month is where naive month subtraction
			// normalizes back into March.
			name:      "march 31st targets february",
			now:       time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "january targets december of previous year",
			now:       time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC),
			wantStart: time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.clock.SetNow(tc.now)
			record, err := f.svc.FetchAndStore(context.Background(), company.ID, nil)
			require.NoError(t, err)
			assert.True(t, record.PeriodStart.Equal(tc.wantStart),
				"got period start %v", record.PeriodStart)
		})
	}
}

func TestFetchAndStoreReplacesExistingSnapshot(t *testing.T) {
	f := setupUsage(t)
	company := f.createCompany(t, "Acme Analytics", "proj-a")
	period := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	f.metering.computeSeconds["proj-a"] = 360000
	first, err := f.svc.FetchAndStore(context.Background(), company.ID, &period)
	require.NoError(t, err)

	// A later re-fetch with corrected provider data replaces, never adds.
	f.metering.computeSeconds["proj-a"] = 180000
	second, err := f.svc.FetchAndStore(context.Background(), company.ID, &period)
	require.NoError(t, err)

	assert.Equal(t, float64(180000), second.ComputeUnitSeconds)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&domain.UsageRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestFetchAndStoreRejectsInactiveCompany(t *testing.T) {
	f := setupUsage(t)
	company := f.createCompany(t, "Acme Analytics", "proj-a")

	suspend := companydomain.StatusSuspended
	_, err := f.companySvc.Update(context.Background(), company.ID, companydomain.UpdateCompanyRequest{Status: &suspend})
	require.NoError(t, err)

	_, err = f.svc.FetchAndStore(context.Background(), company.ID, nil)
	assert.ErrorIs(t, err, companydomain.ErrNotActive)
	assert.Zero(t, f.metering.calls)
}

func TestFetchAndStoreAllIsolatesFailures(t *testing.T) {
	f := setupUsage(t)
	f.createCompany(t, "Alpha", "proj-alpha")
	f.createCompany(t, "Broken", "proj-broken")
	f.createCompany(t, "Gamma", "proj-gamma")
	f.metering.computeSeconds["proj-alpha"] = 1000
	f.metering.computeSeconds["proj-gamma"] = 2000
	f.metering.failProjects["proj-broken"] = true

	results, err := f.svc.FetchAndStoreAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byName := map[string]domain.FetchResult{}
	for _, r := range results {
		byName[r.Name] = r
	}
	assert.True(t, byName["Alpha"].Success)
	assert.True(t, byName["Gamma"].Success)
	assert.False(t, byName["Broken"].Success)
	assert.Contains(t, byName["Broken"].Error, "429")
}

func TestFetchAndStoreAllPacesLargeBatches(t *testing.T) {
	f := setupUsage(t)
	for i := 0; i < 12; i++ {
		projectID := fmt.Sprintf("proj-%02d", i)
		f.createCompany(t, fmt.Sprintf("Tenant %02d", i), projectID)
		f.metering.computeSeconds[projectID] = 1000
	}

	results, err := f.svc.FetchAndStoreAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 12)

	// Above the threshold every company is followed by the pacing delay.
	require.Len(t, f.sleeps, 12)
	for _, d := range f.sleeps {
		assert.Equal(t, 1500*time.Millisecond, d)
	}
}

func TestFetchAndStoreAllSkipsDelayForSmallBatches(t *testing.T) {
	f := setupUsage(t)
	f.createCompany(t, "Alpha", "proj-alpha")
	f.createCompany(t, "Beta", "proj-beta")
	f.metering.computeSeconds["proj-alpha"] = 1000
	f.metering.computeSeconds["proj-beta"] = 1000

	_, err := f.svc.FetchAndStoreAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.sleeps)
}

func TestHistoryDerivesDisplayValues(t *testing.T) {
	f := setupUsage(t)
	company := f.createCompany(t, "Acme Analytics", "proj-a")
	f.metering.computeSeconds["proj-a"] = 7200

	period := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err := f.svc.FetchAndStore(context.Background(), company.ID, &period)
	require.NoError(t, err)

	entries, err := f.svc.History(context.Background(), company.ID, 6)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Equal(t, 2.0, entries[0].ComputeHours)
	assert.NotEmpty(t, entries[0].PeriodLabel)
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(time.Date(2026, 2, 14, 9, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 2, 28, 23, 59, 59, 0, time.UTC), end)
}
