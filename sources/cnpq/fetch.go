package cnpq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"research-hub/config"
)

var httpClient = &http.Client{Timeout: 120 * time.Second}

// Fetcher talks to the external crawler that mirrors CNPq group pages.
type Fetcher struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewFetcher creates a mirror fetcher.
func NewFetcher(cfg *config.Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Logger: logger}
}

// Name returns the source name.
func (f *Fetcher) Name() string {
	return "cnpq"
}

// FetchGroup asks the crawler for the payload of one mirror URL.
func (f *Fetcher) FetchGroup(ctx context.Context, mirrorURL string) (*GroupPayload, error) {
	endpoint := fmt.Sprintf("%s/group?url=%s", f.Config.CnpqCrawlerURL, url.QueryEscape(mirrorURL))
	f.Logger.Debug("Fetching mirror payload", zap.String("url", endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crawler request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		f.Logger.Error("Crawler returned non-200 status",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return nil, fmt.Errorf("crawler failed: status %d", resp.StatusCode)
	}

	var payload GroupPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding crawler payload: %w", err)
	}
	return &payload, nil
}
