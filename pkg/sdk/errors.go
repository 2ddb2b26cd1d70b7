package propmatch

import (
	"errors"
	"fmt"
)

// API error codes as returned in error response bodies.
const (
	CodeBadRequest             = "bad_request"
	CodeValidationFailed       = "validation_failed"
	CodeUnauthorized           = "unauthorized"
	CodeNotFound               = "not_found"
	CodeListingNotFound        = "listing_not_found"
	CodeInvalidQuery           = "invalid_query"
	CodeRateLimited            = "rate_limited"
	CodeBudgetExhausted        = "budget_exhausted"
	CodeRetrievalUnavailable   = "retrieval_unavailable"
	CodeEmbeddingProviderError = "embedding_provider_error"
	CodeLLMProviderError       = "llm_provider_error"
	CodeInternalError          = "internal_error"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int    // HTTP status code
	Code    string // machine-readable error code
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("propmatch: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("propmatch: %s (status %d)", e.Message, e.Status)
}

func codeIs(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

// IsNotFound reports whether err is a 404 for a listing or route.
func IsNotFound(err error) bool {
	return codeIs(err, CodeListingNotFound) || codeIs(err, CodeNotFound)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return codeIs(err, CodeUnauthorized)
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	return codeIs(err, CodeRateLimited)
}

// IsBudgetExhausted reports whether err is a token budget rejection.
func IsBudgetExhausted(err error) bool {
	return codeIs(err, CodeBudgetExhausted)
}

// IsRetrievalUnavailable reports whether err means the search backend
// is down.
func IsRetrievalUnavailable(err error) bool {
	return codeIs(err, CodeRetrievalUnavailable)
}
