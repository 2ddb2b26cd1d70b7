package propmatch

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// Usage returns the LLM token usage report for the given period. An
// empty period defaults to the server's (month).
func (c *Client) Usage(ctx context.Context, period Period) (report *UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, err) }()

	var q url.Values
	if period != "" {
		q = url.Values{"period": {string(period)}}
	}
	report = &UsageReport{}
	if err = c.do(ctx, http.MethodGet, c.endpoint(q, "api", "v1", "usage"), nil, report); err != nil {
		return nil, err
	}
	return report, nil
}
