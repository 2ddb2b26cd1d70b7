package propmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Health reports component health. The service answers 503 with the
// same report body when search cannot run, so a report is returned for
// both 200 and 503; err is non-nil only when no report could be read.
func (c *Client) Health(ctx context.Context) (report *HealthReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint(nil, "health"), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("propmatch: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return nil, apiErrorFromResponse(resp)
	}
	report = &HealthReport{}
	if err = json.NewDecoder(resp.Body).Decode(report); err != nil {
		return nil, fmt.Errorf("propmatch: decode response: %w", err)
	}
	return report, nil
}
