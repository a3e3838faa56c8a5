package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bando358/neonmeter/internal/auth"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type fetchUsageRequest struct {
	CompanyID string `json:"company_id"`
	// PeriodDate selects the billing month ("2026-07-01" or RFC3339).
	// Empty means the previous calendar month.
	PeriodDate string `json:"period_date"`
}

func parsePeriodDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, newValidationError("period_date", "invalid_period_date", "invalid period date")
}

func (s *Server) FetchUsage(c *gin.Context) {
	var req fetchUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	companyID, err := snowflake.ParseString(strings.TrimSpace(req.CompanyID))
	if err != nil {
		AbortWithError(c, newValidationError("company_id", "invalid_company_id", "invalid company id"))
		return
	}
	periodDate, err := parsePeriodDate(req.PeriodDate)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := s.usageSvc.FetchAndStore(c.Request.Context(), companyID, periodDate)
	if err != nil {
		s.metrics.usageFetches.WithLabelValues("error").Inc()
		AbortWithError(c, err)
		return
	}

	s.metrics.usageFetches.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) GetCompanyUsageHistory(c *gin.Context) {
	id, ok := companyIDParam(c)
	if !ok {
		return
	}
	if !currentActor(c).CanAccessCompany(id) {
		AbortWithError(c, auth.ErrForbidden)
		return
	}

	months := 12
	if raw := strings.TrimSpace(c.Query("months")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 36 {
			AbortWithError(c, newValidationError("months", "invalid_months", "invalid months"))
			return
		}
		months = n
	}

	history, err := s.usageSvc.History(c.Request.Context(), id, months)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history})
}
