package health

import "context"

// ListingPinger checks listing store availability.
type ListingPinger interface {
	Ping(ctx context.Context) error
}

// VectorPinger checks vector index availability.
type VectorPinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks language model provider availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}
