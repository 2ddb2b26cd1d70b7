package propmatch

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	apiKey     string
	httpc      *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithAPIKey sets the bearer token sent on every request.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) { c.apiKey = key })
}

// WithHTTPClient replaces the underlying HTTP client. The client's own
// Timeout should stay zero; per-call deadlines come from WithTimeout
// and the request context, and a client timeout would cut streams off.
func WithHTTPClient(httpc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		if httpc != nil {
			c.httpc = httpc
		}
	})
}

// WithTimeout bounds each non-streaming call. Zero disables the
// default; streaming calls are bounded only by their context.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) { c.timeout = d })
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return optionFunc(func(c *clientConfig) {
		if ua != "" {
			c.userAgent = ua
		}
	})
}

// WithLogger enables operation logging.
func WithLogger(logger *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) { c.logger = logger })
}

// WithMetrics registers client operation metrics on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) { c.metricsReg = reg })
}
