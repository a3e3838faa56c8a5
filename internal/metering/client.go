package metering

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Bando358/neonmeter/internal/config"
	"github.com/Bando358/neonmeter/internal/metering/domain"
	"go.uber.org/zap"
)

const maxErrorBody = 200

type HTTPClient struct {
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewHTTPClient(cfg config.Config, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.NeonAPIBase,
		client: &http.Client{
			Timeout: time.Duration(cfg.ProviderTimeoutMillis) * time.Millisecond,
		},
		log: log.Named("metering.client"),
	}
}

func (c *HTTPClient) FetchConsumption(ctx context.Context, params domain.FetchParams) (*domain.ConsumptionResponse, error) {
	endpoint, err := url.Parse(c.baseURL + "/consumption_history/v2/projects")
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	granularity := params.Granularity
	if granularity == "" {
		granularity = domain.GranularityMonthly
	}

	query := endpoint.Query()
	query.Set("from", params.From.UTC().Format(time.RFC3339))
	query.Set("to", params.To.UTC().Format(time.RFC3339))
	query.Set("granularity", string(granularity))
	if params.OrgID != "" {
		query.Set("org_id", params.OrgID)
	}
	for _, id := range params.ProjectIDs {
		query.Add("project_ids", id)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+params.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts and transport failures are retryable upstream errors;
		// the retry policy belongs to the external invoker.
		return nil, &domain.UpstreamError{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Warn("consumption fetch failed",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var parsed domain.ConsumptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &domain.UpstreamError{Status: resp.StatusCode, Body: "invalid response body"}
	}
	return &parsed, nil
}
