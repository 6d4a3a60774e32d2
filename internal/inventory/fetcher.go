package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"thalrakshak-assistant/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Fetcher 库存来源
type Fetcher interface {
	Fetch(ctx context.Context) (*models.InventorySnapshot, error)
}

// HTTPFetcher 库存服务 API 客户端
type HTTPFetcher struct {
	httpClient *resty.Client
	logger     *zap.Logger
	now        func() time.Time
}

// NewHTTPFetcher 创建库存服务客户端
func NewHTTPFetcher(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-API-Key", apiKey)
	}

	return &HTTPFetcher{
		httpClient: client,
		logger:     logger,
		now:        time.Now,
	}
}

// Fetch GET /inventory
func (f *HTTPFetcher) Fetch(ctx context.Context) (*models.InventorySnapshot, error) {
	resp, err := f.httpClient.R().
		SetContext(ctx).
		Get("/inventory")
	if err != nil {
		return nil, fmt.Errorf("failed to call inventory API: %w", err)
	}
	if resp.IsError() {
		f.logger.Warn("Inventory API returned error",
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, fmt.Errorf("inventory API error: status %d", resp.StatusCode())
	}

	var snapshot models.InventorySnapshot
	if err := json.Unmarshal(resp.Body(), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inventory: %w", err)
	}
	snapshot.Source = models.SourceLive
	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = f.now()
	}

	f.logger.Debug("Fetched inventory from API",
		zap.Int("total_units", snapshot.Total()),
		zap.Int("cities", len(snapshot.Cities)),
	)
	return &snapshot, nil
}
