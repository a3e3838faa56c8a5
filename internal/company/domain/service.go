package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound           = errors.New("company_not_found")
	ErrNotActive          = errors.New("company_not_active")
	ErrInvalidMarkup      = errors.New("markup_percent_out_of_range")
	ErrInvalidTransition  = errors.New("invalid_status_transition")
	ErrSlugTaken          = errors.New("company_slug_taken")
	ErrMissingProjectID   = errors.New("neon_project_id_required")
	ErrMissingAPIKey      = errors.New("neon_api_key_required")
	ErrInvalidCompanyName = errors.New("company_name_too_short")
)

type CreateCompanyRequest struct {
	Name                string
	Email               string
	NeonProjectID       string
	NeonOrgID           string
	NeonAPIKey          string
	MarkupPercent       *float64 // nil applies the default; 0 is a valid markup
	Currency            string
	AlertThresholdCents *int64
	Metadata            map[string]any
}

type UpdateCompanyRequest struct {
	Name                *string
	Email               *string
	NeonProjectID       *string
	NeonOrgID           *string
	NeonAPIKey          *string // nil or empty keeps the existing key
	MarkupPercent       *float64
	Currency            *string
	Status              *CompanyStatus
	AlertThresholdCents *int64
	Metadata            map[string]any
}

type Service interface {
	Create(ctx context.Context, req CreateCompanyRequest) (*Company, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateCompanyRequest) (*Company, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Company, error)
	List(ctx context.Context) ([]Company, error)
	ListActive(ctx context.Context) ([]Company, error)
	Delete(ctx context.Context, id snowflake.ID) error

	// DecryptAPIKey returns the company's Neon API key in clear. Fails closed
	// on any tag mismatch.
	DecryptAPIKey(ctx context.Context, company *Company) (string, error)
}

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Company, error)
	FindBySlug(ctx context.Context, slug string) (*Company, error)
	ListByStatus(ctx context.Context, status CompanyStatus) ([]Company, error)
	List(ctx context.Context) ([]Company, error)
	Create(ctx context.Context, company *Company) error
	Update(ctx context.Context, company *Company) error
	Delete(ctx context.Context, id snowflake.ID) error
	SetStripeCustomerID(ctx context.Context, id snowflake.ID, customerID string) error
}
