package propmatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestSearch_SendsBodyAndDecodes(t *testing.T) {
	var gotPath, gotMethod string
	var gotReq SearchRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"search_id": "s-1",
			"query": "2 bed apartment in Sea Point",
			"results": [{
				"listing": {"id": "prop_002", "title": "Modern Apartment in Sea Point", "price": 2400000, "currency": "ZAR"},
				"score": 78.4,
				"scoring_breakdown": {"vector_contribution": 63.7, "lexical_contribution": 9.9, "metadata_bonus": 4.8, "final": 78.4}
			}],
			"total": 1, "page": 1, "page_size": 12, "total_pages": 1,
			"has_next": false, "has_previous": false, "degraded": false
		}`))
	})

	resp, err := c.Search(context.Background(), SearchRequest{
		Query: "2 bed apartment in Sea Point", Limit: 12, Explain: true,
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	if gotMethod != http.MethodPost || gotPath != "/api/v1/search" {
		t.Errorf("request = %s %s, want POST /api/v1/search", gotMethod, gotPath)
	}
	if gotReq.Query != "2 bed apartment in Sea Point" || gotReq.Limit != 12 || !gotReq.Explain {
		t.Errorf("server saw request %+v", gotReq)
	}
	if resp.SearchID != "s-1" || resp.Total != 1 {
		t.Errorf("response = %+v", resp)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("results = %d, want 1", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Listing.ID != "prop_002" || r.Score != 78.4 || r.Breakdown.Final != 78.4 {
		t.Errorf("result = %+v", r)
	}
	if r.Listing.Currency != "ZAR" {
		t.Errorf("currency = %q, want ZAR", r.Listing.Currency)
	}
}

func TestExplanation_PathAndQuery(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"listing_id": "prop_002", "match_score": 88,
			"positive_points": [{"claim": "Sea views", "detail": "Promenade on the doorstep"}],
			"negative_points": [],
			"summary": "Strong fit for a sea view brief."
		}`))
	})

	exp, err := c.Explanation(context.Background(), "prop_002", "sea view apartment")
	if err != nil {
		t.Fatalf("explanation: %v", err)
	}
	if gotPath != "/api/v1/listings/prop_002/explanation" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "sea view apartment" {
		t.Errorf("query param = %q", gotQuery)
	}
	if exp.MatchScore != 88 || len(exp.PositivePoints) != 1 {
		t.Errorf("explanation = %+v", exp)
	}
	if exp.Fallback {
		t.Error("fallback must be false")
	}
}

func TestExplanation_EscapesListingID(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(`{"listing_id": "a/b", "match_score": 50, "summary": "x"}`))
	})

	if _, err := c.Explanation(context.Background(), "a/b", "q"); err != nil {
		t.Fatalf("explanation: %v", err)
	}
	if !strings.Contains(gotPath, "a%2Fb") {
		t.Errorf("escaped path = %q, want listing id escaped", gotPath)
	}
}

func TestExplanation_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"listing_not_found","message":"listing not found"}`))
	})

	_, err := c.Explanation(context.Background(), "nope", "q")
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func streamHandler(frames ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			_, _ = io.WriteString(w, "data: "+f+"\n\n")
		}
	}
}

func TestStreamExplanation_DeliversEventsInOrder(t *testing.T) {
	c := newTestClient(t, streamHandler(
		`{"type":"start","listing_id":"prop_001"}`,
		`{"type":"chunk","listing_id":"prop_001","text":"{\"match_score\""}`,
		`{"type":"chunk","listing_id":"prop_001","text":": 91}"}`,
		`{"type":"complete","listing_id":"prop_001","explanation":{"listing_id":"prop_001","match_score":91,"summary":"Great fit."}}`,
		`[DONE]`,
	))

	var events []StreamEvent
	err := c.StreamExplanation(context.Background(), "prop_001", "garden house",
		func(ev StreamEvent) error {
			events = append(events, ev)
			return nil
		})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	wantTypes := []StreamEventType{StreamEventStart, StreamEventChunk, StreamEventChunk, StreamEventComplete}
	if len(events) != len(wantTypes) {
		t.Fatalf("events = %d, want %d", len(events), len(wantTypes))
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Errorf("event %d type = %q, want %q", i, events[i].Type, want)
		}
	}
	final := events[len(events)-1]
	if final.Explanation == nil || final.Explanation.MatchScore != 91 {
		t.Errorf("complete event = %+v", final)
	}
}

func TestStreamExplanation_CachedSingleEvent(t *testing.T) {
	c := newTestClient(t, streamHandler(
		`{"type":"cached","listing_id":"prop_001","explanation":{"listing_id":"prop_001","match_score":85,"summary":"Cached."}}`,
		`[DONE]`,
	))

	var events []StreamEvent
	err := c.StreamExplanation(context.Background(), "prop_001", "garden house",
		func(ev StreamEvent) error {
			events = append(events, ev)
			return nil
		})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(events) != 1 || events[0].Type != StreamEventCached {
		t.Fatalf("events = %+v, want a single cached event", events)
	}
}

func TestStreamExplanation_TruncatedStreamErrors(t *testing.T) {
	c := newTestClient(t, streamHandler(
		`{"type":"start","listing_id":"prop_001"}`,
	))

	err := c.StreamExplanation(context.Background(), "prop_001", "q",
		func(StreamEvent) error { return nil })
	if err == nil {
		t.Fatal("expected error for a stream without done marker")
	}
}

func TestStreamExplanation_CallbackErrorStops(t *testing.T) {
	c := newTestClient(t, streamHandler(
		`{"type":"start","listing_id":"prop_001"}`,
		`{"type":"chunk","listing_id":"prop_001","text":"x"}`,
		`[DONE]`,
	))

	stop := errors.New("consumer gone")
	seen := 0
	err := c.StreamExplanation(context.Background(), "prop_001", "q",
		func(StreamEvent) error {
			seen++
			return stop
		})
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want the callback error", err)
	}
	if seen != 1 {
		t.Errorf("callback ran %d times, want 1", seen)
	}
}

func TestStreamExplanation_PreStreamErrorIsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"bad_request","message":"query parameter is required"}`))
	})

	err := c.StreamExplanation(context.Background(), "prop_001", "",
		func(StreamEvent) error { return nil })
	var ae *APIError
	if !errors.As(err, &ae) || ae.Code != CodeBadRequest {
		t.Fatalf("expected bad_request APIError, got %v", err)
	}
}

func TestInvalidateExplanations_ReturnsDeleted(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"deleted": 3}`))
	})

	deleted, err := c.InvalidateExplanations(context.Background(), "prop_001")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/api/v1/listings/prop_001/explanations" {
		t.Errorf("request = %s %s", gotMethod, gotPath)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}
}

func TestInvalidateAllExplanations(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"deleted": 42}`))
	})

	deleted, err := c.InvalidateAllExplanations(context.Background())
	if err != nil {
		t.Fatalf("invalidate all: %v", err)
	}
	if gotPath != "/api/v1/explanations" {
		t.Errorf("path = %q", gotPath)
	}
	if deleted != 42 {
		t.Errorf("deleted = %d, want 42", deleted)
	}
}

func TestUsage_PeriodParam(t *testing.T) {
	var gotPeriod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPeriod = r.URL.Query().Get("period")
		_, _ = w.Write([]byte(`{
			"period": "day",
			"usage": {"tokens": 1234},
			"budget": {"tokens_limit": 100000, "tokens_remaining": 98766, "is_exhausted": false}
		}`))
	})

	report, err := c.Usage(context.Background(), PeriodDay)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if gotPeriod != "day" {
		t.Errorf("period param = %q, want day", gotPeriod)
	}
	if report.Usage.Tokens != 1234 || report.Budget.TokensRemaining != 98766 {
		t.Errorf("report = %+v", report)
	}
}

func TestUsage_EmptyPeriodOmitsParam(t *testing.T) {
	var hasParam bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hasParam = r.URL.Query().Has("period")
		_, _ = w.Write([]byte(`{"period": "month", "usage": {"tokens": 0}, "budget": {}}`))
	})

	if _, err := c.Usage(context.Background(), ""); err != nil {
		t.Fatalf("usage: %v", err)
	}
	if hasParam {
		t.Error("empty period must not send the query param")
	}
}

func TestHealth_DecodesDegraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"degraded","checks":{"listings":"ok","vector_index":"ok","llm":"error"}}`))
	})

	report, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if report.Status != "degraded" || report.Checks["llm"] != "error" {
		t.Errorf("report = %+v", report)
	}
}

func TestHealth_ReportsOn503(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"error","checks":{"listings":"error","vector_index":"ok","llm":"ok"}}`))
	})

	report, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("health must decode the 503 body: %v", err)
	}
	if report.Status != "error" || report.Checks["listings"] != "error" {
		t.Errorf("report = %+v", report)
	}
}
