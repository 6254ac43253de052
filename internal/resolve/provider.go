// Package resolve turns an opaque network address into a business identity by
// running an ordered waterfall of resolution strategies.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sightline-analytics/sightline/internal/visitor"
)

const userAgentHeader = "Sightline/1.0"

// maxProviderBody caps how much of an external provider response is read.
const maxProviderBody = 256 * 1024

// Provider attempts one resolution strategy for an address. A partial result
// with zero values means "no data"; an error means the strategy failed and the
// waterfall continues.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, addr, userAgent string) (visitor.Result, error)
}

// NewHTTPClient returns the client used for external provider calls. Every
// call carries a bounded timeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgentHeader)
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
