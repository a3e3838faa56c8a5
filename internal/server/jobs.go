package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job endpoints are invoked by the external scheduler. They always run to
// completion and report per-company outcomes; a failing company never aborts
// the batch.

func (s *Server) RunUsageFetchJob(c *gin.Context) {
	runID := uuid.NewString()
	log := s.log.With(zap.String("job", "usage-fetch"), zap.String("run_id", runID))
	log.Info("job started")

	results, err := s.usageSvc.FetchAndStoreAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	succeeded, failed := 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
			s.metrics.usageFetches.WithLabelValues("ok").Inc()
		} else {
			failed++
			s.metrics.usageFetches.WithLabelValues("error").Inc()
		}
	}
	log.Info("job finished", zap.Int("succeeded", succeeded), zap.Int("failed", failed))

	c.JSON(http.StatusOK, gin.H{
		"run_id":    runID,
		"succeeded": succeeded,
		"failed":    failed,
		"results":   results,
	})
}

func (s *Server) RunMonthlyBillingJob(c *gin.Context) {
	runID := uuid.NewString()
	log := s.log.With(zap.String("job", "monthly-billing"), zap.String("run_id", runID))
	log.Info("job started")

	results, err := s.invoiceSvc.RunMonthlyBilling(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	generated, skipped, failed := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Error != "":
			failed++
		case r.Skipped:
			skipped++
		default:
			generated++
			s.metrics.invoicesGenerated.Inc()
		}
	}
	log.Info("job finished",
		zap.Int("generated", generated),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	c.JSON(http.StatusOK, gin.H{
		"run_id":    runID,
		"generated": generated,
		"skipped":   skipped,
		"failed":    failed,
		"results":   results,
	})
}

func (s *Server) RunOverdueSweepJob(c *gin.Context) {
	runID := uuid.NewString()
	log := s.log.With(zap.String("job", "overdue-sweep"), zap.String("run_id", runID))
	log.Info("job started")

	result, err := s.sweeper.Sweep(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	log.Info("job finished",
		zap.Int64("marked_overdue", result.MarkedOverdue),
		zap.Int64("companies_suspended", result.CompaniesSuspended),
	)

	c.JSON(http.StatusOK, gin.H{
		"run_id":              runID,
		"marked_overdue":      result.MarkedOverdue,
		"companies_suspended": result.CompaniesSuspended,
	})
}
