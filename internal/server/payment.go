package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type mobileMoneyRequest struct {
	Phone        string `json:"phone"`
	CustomerName string `json:"customer_name"`
	Country      string `json:"country"`
}

func (s *Server) InitiateCardPayment(c *gin.Context) {
	id, ok := companyIDParam(c)
	if !ok {
		return
	}

	initiation, err := s.paymentSvc.InitiateCardPayment(c.Request.Context(), currentActor(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": initiation})
}

func (s *Server) InitiateMobileMoneyPayment(c *gin.Context) {
	id, ok := companyIDParam(c)
	if !ok {
		return
	}

	var req mobileMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.Phone) == "" {
		AbortWithError(c, newValidationError("phone", "invalid_phone", "phone is required"))
		return
	}

	initiation, err := s.paymentSvc.InitiateMobileMoneyPayment(
		c.Request.Context(), currentActor(c), id,
		strings.TrimSpace(req.Phone), strings.TrimSpace(req.CustomerName), strings.TrimSpace(req.Country),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": initiation})
}

func (s *Server) ListPayments(c *gin.Context) {
	var companyID *snowflake.ID
	if raw := strings.TrimSpace(c.Query("company_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("company_id", "invalid_company_id", "invalid company id"))
			return
		}
		companyID = &id
	}

	items, err := s.paymentSvc.List(c.Request.Context(), currentActor(c), companyID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}
