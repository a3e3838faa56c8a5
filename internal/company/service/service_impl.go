package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/Bando358/neonmeter/internal/currency"
	"github.com/Bando358/neonmeter/internal/secrets"
	"github.com/Bando358/neonmeter/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	Encryptor *secrets.Encryptor
}

type Service struct {
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	encryptor *secrets.Encryptor
}

func NewService(p Params) domain.Service {
	return &Service{
		log:       p.Log.Named("company.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		encryptor: p.Encryptor,
	}
}

const defaultMarkupPercent = 20.0

func (s *Service) Create(ctx context.Context, req domain.CreateCompanyRequest) (*domain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if len(name) < 2 {
		return nil, domain.ErrInvalidCompanyName
	}
	if strings.TrimSpace(req.NeonProjectID) == "" {
		return nil, domain.ErrMissingProjectID
	}
	if strings.TrimSpace(req.NeonAPIKey) == "" {
		return nil, domain.ErrMissingAPIKey
	}

	markup := defaultMarkupPercent
	if req.MarkupPercent != nil {
		markup = *req.MarkupPercent
	}
	if markup < 0 || markup > 100 {
		return nil, domain.ErrInvalidMarkup
	}

	cur := currency.USD
	if strings.TrimSpace(req.Currency) != "" {
		parsed, err := currency.Parse(req.Currency)
		if err != nil {
			return nil, err
		}
		cur = parsed
	}

	cipher, iv, tag, err := s.encryptor.Encrypt(strings.TrimSpace(req.NeonAPIKey))
	if err != nil {
		return nil, fmt.Errorf("encrypt api key: %w", err)
	}

	company := &domain.Company{
		ID:                  s.genID.Generate(),
		Name:                name,
		Slug:                s.uniqueSlug(ctx, name),
		NeonProjectID:       strings.TrimSpace(req.NeonProjectID),
		NeonOrgID:           strings.TrimSpace(req.NeonOrgID),
		NeonAPIKeyCipher:    cipher,
		NeonAPIKeyIV:        iv,
		NeonAPIKeyTag:       tag,
		MarkupPercent:       markup,
		Currency:            cur,
		Status:              domain.StatusActive,
		AlertThresholdCents: req.AlertThresholdCents,
		Metadata:            normalizeMetadata(req.Metadata),
	}
	if email := strings.TrimSpace(req.Email); email != "" {
		company.Email = &email
	}

	if err := s.repo.Create(ctx, company); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	s.log.Info("company created",
		zap.String("company_id", company.ID.String()),
		zap.String("slug", company.Slug),
	)
	return company, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateCompanyRequest) (*domain.Company, error) {
	company, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 2 {
			return nil, domain.ErrInvalidCompanyName
		}
		company.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" {
			company.Email = nil
		} else {
			company.Email = &email
		}
	}
	if req.NeonProjectID != nil && strings.TrimSpace(*req.NeonProjectID) != "" {
		company.NeonProjectID = strings.TrimSpace(*req.NeonProjectID)
	}
	if req.NeonOrgID != nil {
		company.NeonOrgID = strings.TrimSpace(*req.NeonOrgID)
	}
	if req.NeonAPIKey != nil && strings.TrimSpace(*req.NeonAPIKey) != "" {
		cipher, iv, tag, err := s.encryptor.Encrypt(strings.TrimSpace(*req.NeonAPIKey))
		if err != nil {
			return nil, fmt.Errorf("encrypt api key: %w", err)
		}
		company.NeonAPIKeyCipher = cipher
		company.NeonAPIKeyIV = iv
		company.NeonAPIKeyTag = tag
	}
	if req.MarkupPercent != nil {
		if *req.MarkupPercent < 0 || *req.MarkupPercent > 100 {
			return nil, domain.ErrInvalidMarkup
		}
		company.MarkupPercent = *req.MarkupPercent
	}
	if req.Currency != nil {
		parsed, err := currency.Parse(*req.Currency)
		if err != nil {
			return nil, err
		}
		company.Currency = parsed
	}
	if req.AlertThresholdCents != nil {
		company.AlertThresholdCents = req.AlertThresholdCents
	}
	if req.Metadata != nil {
		company.Metadata = normalizeMetadata(req.Metadata)
	}
	if req.Status != nil {
		if err := validateTransition(company.Status, *req.Status); err != nil {
			return nil, err
		}
		company.Status = *req.Status
	}

	if err := s.repo.Update(ctx, company); err != nil {
		return nil, err
	}
	return company, nil
}

// validateTransition enforces ACTIVE ⇄ SUSPENDED, either → CANCELLED (terminal).
func validateTransition(from, to domain.CompanyStatus) error {
	if from == to {
		return nil
	}
	if from == domain.StatusCancelled {
		return domain.ErrInvalidTransition
	}
	switch to {
	case domain.StatusActive, domain.StatusSuspended, domain.StatusCancelled:
		return nil
	default:
		return domain.ErrInvalidTransition
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]domain.Company, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Company, error) {
	return s.repo.ListByStatus(ctx, domain.StatusActive)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) DecryptAPIKey(ctx context.Context, company *domain.Company) (string, error) {
	key, err := s.encryptor.Decrypt(company.NeonAPIKeyCipher, company.NeonAPIKeyIV, company.NeonAPIKeyTag)
	if err != nil {
		// Detail stays server-side; the tenant only ever sees a generic message.
		s.log.Error("api key decrypt failed", zap.String("company_id", company.ID.String()))
		return "", err
	}
	return key, nil
}

func normalizeMetadata(input map[string]any) datatypes.JSONMap {
	if len(input) == 0 {
		return datatypes.JSONMap{}
	}
	output := datatypes.JSONMap{}
	for k, v := range input {
		output[k] = v
	}
	return output
}

func (s *Service) uniqueSlug(ctx context.Context, name string) string {
	base := slug.Make(name)
	if base == "" {
		base = "company"
	}
	if _, err := s.repo.FindBySlug(ctx, base); err != nil {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}
