package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	defaultFetchTimeout     = 10 * time.Second
	defaultMaxRetries       = 2
	defaultRetryInterval    = 200 * time.Millisecond
	defaultBreakerFailures  = 3
	defaultBreakerOpenFor   = 30 * time.Second
	defaultBreakerInterval  = time.Minute
	maxProductResponseBytes = 32 << 20
)

// HTTPProvider fetches the product registry as JSON from an upstream URL.
// Calls go through a circuit breaker and failed fetches are retried with
// exponential backoff.
type HTTPProvider struct {
	url           string
	client        *http.Client
	breaker       *gobreaker.CircuitBreaker
	maxRetries    uint64
	retryInterval time.Duration
	logger        *zap.Logger

	breakerFailures uint32
	breakerOpenFor  time.Duration
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// WithRetries sets how many times a failed fetch is retried and the initial
// backoff interval.
func WithRetries(maxRetries uint64, initialInterval time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		p.maxRetries = maxRetries
		if initialInterval > 0 {
			p.retryInterval = initialInterval
		}
	}
}

// WithBreaker sets the consecutive failures that open the breaker and how
// long it stays open.
func WithBreaker(failures uint32, openFor time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		if failures > 0 {
			p.breakerFailures = failures
		}
		if openFor > 0 {
			p.breakerOpenFor = openFor
		}
	}
}

// NewHTTPProvider constructs an HTTPProvider for the given registry URL.
func NewHTTPProvider(url string, logger *zap.Logger, opts ...HTTPOption) *HTTPProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &HTTPProvider{
		url:             strings.TrimSpace(url),
		client:          &http.Client{Timeout: defaultFetchTimeout},
		maxRetries:      defaultMaxRetries,
		retryInterval:   defaultRetryInterval,
		logger:          logger,
		breakerFailures: defaultBreakerFailures,
		breakerOpenFor:  defaultBreakerOpenFor,
	}
	for _, opt := range opts {
		opt(p)
	}

	failures := p.breakerFailures
	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "product-registry",
		Interval: defaultBreakerInterval,
		Timeout:  p.breakerOpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return p
}

func (p *HTTPProvider) ListApprovedProducts(ctx context.Context) ([]Product, error) {
	if p.url == "" {
		return nil, fmt.Errorf("%w: no registry URL configured", ErrProviderUnavailable)
	}

	var products []Product
	operation := func() error {
		out, err := p.breaker.Execute(func() (interface{}, error) {
			return p.fetch(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(err)
			}
			return err
		}
		products = out.([]Product)
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.retryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, p.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		p.logger.Debug("retrying product fetch", zap.Error(err), zap.Duration("wait", wait))
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	return FilterApproved(products), nil
}

func (p *HTTPProvider) fetch(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request products: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("registry responded with status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var products []Product
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxProductResponseBytes))
	if err := decoder.Decode(&products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}
