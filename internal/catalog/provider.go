package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

//go:embed data/products.json
var embeddedProducts []byte

// Provider returns the list of approved products.
type Provider interface {
	ListApprovedProducts(ctx context.Context) ([]Product, error)
}

// StaticProvider serves a fixed product list.
type StaticProvider struct {
	products []Product
}

// NewStaticProvider serves the given products, filtered to approved ones.
func NewStaticProvider(products []Product) *StaticProvider {
	return &StaticProvider{products: FilterApproved(products)}
}

// NewEmbeddedProvider serves the product list bundled with the binary.
func NewEmbeddedProvider() (*StaticProvider, error) {
	var products []Product
	if err := json.Unmarshal(embeddedProducts, &products); err != nil {
		return nil, fmt.Errorf("decode embedded products: %w", err)
	}
	return NewStaticProvider(products), nil
}

func (p *StaticProvider) ListApprovedProducts(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Product, len(p.products))
	copy(out, p.products)
	return out, nil
}

// FallbackProvider asks the primary provider first and serves the fallback
// when the primary fails.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
	logger   *zap.Logger
}

// NewFallbackProvider constructs a FallbackProvider.
func NewFallbackProvider(primary, fallback Provider, logger *zap.Logger) *FallbackProvider {
	return &FallbackProvider{primary: primary, fallback: fallback, logger: logger}
}

func (p *FallbackProvider) ListApprovedProducts(ctx context.Context) ([]Product, error) {
	products, err := p.primary.ListApprovedProducts(ctx)
	if err == nil {
		return products, nil
	}
	p.logger.Warn("live product list unavailable, serving fallback catalog", zap.Error(err))
	return p.fallback.ListApprovedProducts(ctx)
}
