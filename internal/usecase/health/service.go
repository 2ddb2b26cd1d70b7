package health

import (
	"context"
	"sync"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search works but explanations fall back.
	Degraded Status = "degraded"
	// Unhealthy indicates search cannot run.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. The listing store and the vector
// index are critical: retrieval is impossible without either. The LLM
// provider only degrades explanations, never search.
type Service struct {
	listings ListingPinger
	vector   VectorPinger
	llm      LLMChecker
}

// New creates a Service. llm can be nil.
func New(listings ListingPinger, vector VectorPinger, llm LLMChecker) *Service {
	return &Service{listings: listings, vector: vector, llm: llm}
}

// Check probes all components concurrently and aggregates the outcome.
func (s *Service) Check(ctx context.Context) Report {
	var (
		wg          sync.WaitGroup
		listingsErr error
		vectorErr   error
		llmErr      error
	)
	wg.Add(2)
	go func() { defer wg.Done(); listingsErr = s.listings.Ping(ctx) }()
	go func() { defer wg.Done(); vectorErr = s.vector.Ping(ctx) }()
	if s.llm != nil {
		wg.Add(1)
		go func() { defer wg.Done(); llmErr = s.llm.HealthCheck(ctx) }()
	}
	wg.Wait()

	checks := map[string]CheckResult{
		"listings":     resultOf(listingsErr),
		"vector_index": resultOf(vectorErr),
	}
	if s.llm != nil {
		checks["llm"] = resultOf(llmErr)
	}

	status := Healthy
	switch {
	case listingsErr != nil || vectorErr != nil:
		status = Unhealthy
	case llmErr != nil:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}

func resultOf(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
