package server

import (
	"errors"
	"io"
	"net/http"

	paymentdomain "github.com/Bando358/neonmeter/internal/payment/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	s.handleProviderWebhook(c, "stripe", s.card.VerifyWebhook, c.GetHeader("Stripe-Signature"))
}

func (s *Server) HandleFedaPayWebhook(c *gin.Context) {
	s.handleProviderWebhook(c, "fedapay", s.mobile.VerifyWebhook, c.GetHeader("X-FEDAPAY-SIGNATURE"))
}

func (s *Server) handleProviderWebhook(
	c *gin.Context,
	provider string,
	verify func(payload []byte, signatureHeader string) (*paymentdomain.WebhookEvent, error),
	signature string,
) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := verify(payload, signature)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			// Unrelated event types are acknowledged so the provider stops
			// retrying them.
			s.metrics.webhookEvents.WithLabelValues(provider, "ignored").Inc()
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		s.metrics.webhookEvents.WithLabelValues(provider, "rejected").Inc()
		AbortWithError(c, err)
		return
	}

	switch event.Kind {
	case paymentdomain.EventApproved:
		err = s.paymentSvc.HandleApproved(c.Request.Context(), event.TransactionID)
	case paymentdomain.EventDeclined:
		err = s.paymentSvc.HandleDeclined(c.Request.Context(), event.TransactionID, event.FailureReason)
	default:
		s.metrics.webhookEvents.WithLabelValues(provider, "ignored").Inc()
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		// Processing failures must surface as errors so the provider
		// redelivers the event.
		s.metrics.webhookEvents.WithLabelValues(provider, "error").Inc()
		AbortWithError(c, err)
		return
	}

	s.metrics.webhookEvents.WithLabelValues(provider, "processed").Inc()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
