package propmatch

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Explanation fetches the explanation for one listing against a query,
// generating and caching it on a miss.
func (c *Client) Explanation(ctx context.Context, listingID, query string) (exp *Explanation, err error) {
	start := time.Now()
	defer func() { c.obs.observe("explanation", start, err) }()

	u := c.endpoint(url.Values{"query": {query}},
		"api", "v1", "listings", listingID, "explanation")
	exp = &Explanation{}
	if err = c.do(ctx, http.MethodGet, u, nil, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// StreamExplanation streams explanation generation as server-sent
// events. onEvent receives every event in order; returning an error
// stops the stream. The call is bounded only by ctx, never by the
// client timeout.
func (c *Client) StreamExplanation(ctx context.Context, listingID, query string, onEvent func(StreamEvent) error) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("stream_explanation", start, err) }()

	u := c.endpoint(url.Values{"query": {query}},
		"api", "v1", "listings", listingID, "explanation", "stream")
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("propmatch: do request: %w", err)
	}
	defer resp.Body.Close()

	// Pre-stream failures (bad query, unknown listing) answer JSON.
	if resp.StatusCode != http.StatusOK {
		return apiErrorFromResponse(resp)
	}
	return readEventStream(resp.Body, onEvent)
}

// readEventStream consumes data-only SSE frames until the done marker.
// A body that ends without the marker was cut off mid-generation.
func readEventStream(r io.Reader, onEvent func(StreamEvent) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			return nil
		}
		var ev StreamEvent
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			return fmt.Errorf("propmatch: decode stream event: %w", err)
		}
		if err := onEvent(ev); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("propmatch: read stream: %w", err)
	}
	return errors.New("propmatch: stream closed before done marker")
}

// InvalidateExplanations drops every cached explanation for a listing
// and reports how many entries were removed.
func (c *Client) InvalidateExplanations(ctx context.Context, listingID string) (deleted int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("invalidate_explanations", start, err) }()

	u := c.endpoint(nil, "api", "v1", "listings", listingID, "explanations")
	var resp invalidateResponse
	if err = c.do(ctx, http.MethodDelete, u, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}

// InvalidateAllExplanations clears the whole explanation cache.
func (c *Client) InvalidateAllExplanations(ctx context.Context) (deleted int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("invalidate_all_explanations", start, err) }()

	var resp invalidateResponse
	if err = c.do(ctx, http.MethodDelete, c.endpoint(nil, "api", "v1", "explanations"), nil, &resp); err != nil {
		return 0, err
	}
	return resp.Deleted, nil
}
