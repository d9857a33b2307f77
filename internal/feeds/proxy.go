package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	apperrors "gridcli/internal/errors"
	"gridcli/internal/infrastructure"
	"gridcli/pkg/contracts/domain"
)

// ProxyClient sends typed requests to a feed proxy, for hosts that cannot
// reach the publisher directly.
type ProxyClient struct {
	url     string
	client  *infrastructure.HTTPClient
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewProxyClient creates a client for the proxy at url
func NewProxyClient(url string, client *infrastructure.HTTPClient, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *ProxyClient {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = infrastructure.NoopMetrics()
	}
	return &ProxyClient{
		url:     url,
		client:  client,
		metrics: metrics,
		logger:  logger.With(slog.String("component", "feed_proxy_client")),
	}
}

// Fetch posts req and decodes the {data: [...]} answer. A missing or
// malformed data key is a contract error; the raw body is logged.
func (p *ProxyClient) Fetch(ctx context.Context, req domain.FeedRequest) ([]domain.FeedRow, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, apperrors.NewAppValidationError("failed to encode feed request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewNetworkError("invalid proxy request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	body, _, err := p.client.Do(ctx, httpReq)
	p.metrics.RecordFetch(ctx, "proxy", start, err)
	if err != nil {
		return nil, err
	}

	var resp domain.FeedResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		p.contractFailure(ctx, req, body)
		return nil, apperrors.NewContractError("proxy response is not a JSON object", err)
	}
	rows, err := decodeObjects(resp.Data)
	if err != nil {
		p.contractFailure(ctx, req, body)
		return nil, apperrors.NewContractError("proxy response has no usable data", err).
			WithContext("type", string(req.Type))
	}
	return rows, nil
}

func (p *ProxyClient) contractFailure(ctx context.Context, req domain.FeedRequest, body []byte) {
	p.logger.ErrorContext(ctx, "Failed to fetch data",
		slog.String("type", string(req.Type)),
		slog.Int("inputs", len(req.Inputs)),
		slog.String("body", string(body)))
}
