package propmatch

import (
	"context"
	"net/http"
	"time"
)

// Search runs a ranked property search. With Explain set, results on
// the returned page carry explanations and the response Degraded flag
// reports whether any of them fell back to the hybrid-only score.
func (c *Client) Search(ctx context.Context, req SearchRequest) (resp *SearchResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	resp = &SearchResponse{}
	if err = c.do(ctx, http.MethodPost, c.endpoint(nil, "api", "v1", "search"), req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
