package server

import (
	"net/http"
	"strings"

	"github.com/Bando358/neonmeter/internal/auth"
	companydomain "github.com/Bando358/neonmeter/internal/company/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createCompanyRequest struct {
	Name                string         `json:"name"`
	Email               string         `json:"email"`
	NeonProjectID       string         `json:"neon_project_id"`
	NeonOrgID           string         `json:"neon_org_id"`
	NeonAPIKey          string         `json:"neon_api_key"`
	MarkupPercent       *float64       `json:"markup_percent"`
	Currency            string         `json:"currency"`
	AlertThresholdCents *int64         `json:"alert_threshold_cents"`
	Metadata            map[string]any `json:"metadata"`
}

type updateCompanyRequest struct {
	Name                *string        `json:"name"`
	Email               *string        `json:"email"`
	NeonProjectID       *string        `json:"neon_project_id"`
	NeonOrgID           *string        `json:"neon_org_id"`
	NeonAPIKey          *string        `json:"neon_api_key"`
	MarkupPercent       *float64       `json:"markup_percent"`
	Currency            *string        `json:"currency"`
	Status              *string        `json:"status"`
	AlertThresholdCents *int64         `json:"alert_threshold_cents"`
	Metadata            map[string]any `json:"metadata"`
}

func companyIDParam(c *gin.Context) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := snowflake.ParseString(raw)
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

func (s *Server) ListCompanies(c *gin.Context) {
	items, err := s.companySvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) CreateCompany(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	company, err := s.companySvc.Create(c.Request.Context(), companydomain.CreateCompanyRequest{
		Name:                req.Name,
		Email:               req.Email,
		NeonProjectID:       req.NeonProjectID,
		NeonOrgID:           req.NeonOrgID,
		NeonAPIKey:          req.NeonAPIKey,
		MarkupPercent:       req.MarkupPercent,
		Currency:            req.Currency,
		AlertThresholdCents: req.AlertThresholdCents,
		Metadata:            req.Metadata,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": company})
}

func (s *Server) GetCompanyByID(c *gin.Context) {
	id, ok := companyIDParam(c)
	if !ok {
		return
	}
	if !currentActor(c).CanAccessCompany(id) {
		AbortWithError(c, auth.ErrForbidden)
		return
	}

	company, err := s.companySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": company})
}

func (s *Server) UpdateCompany(c *gin.Context) {
	id, ok := companyIDParam(c)
	if !ok {
		return
	}

	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := companydomain.UpdateCompanyRequest{
		Name:                req.Name,
		Email:               req.Email,
		NeonProjectID:       req.NeonProjectID,
		NeonOrgID:           req.NeonOrgID,
		NeonAPIKey:          req.NeonAPIKey,
		MarkupPercent:       req.MarkupPercent,
		Currency:            req.Currency,
		AlertThresholdCents: req.AlertThresholdCents,
		Metadata:            req.Metadata,
	}
	if req.Status != nil {
		status := companydomain.CompanyStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		update.Status = &status
	}

	company, err := s.companySvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": company})
}

func (s *Server) DeleteCompany(c *gin.Context) {
	id, ok := companyIDParam(c)
	if !ok {
		return
	}

	if err := s.companySvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
