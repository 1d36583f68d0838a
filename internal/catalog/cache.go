package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Catalog caches the approved product list resolved from a Provider.
type Catalog struct {
	provider Provider
	ttl      time.Duration
	clock    func() time.Time

	mu        sync.RWMutex
	products  []Product
	byRegNr   map[string]int
	fetchedAt time.Time
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.clock = clock
	}
}

// NewCatalog caches the provider's products for ttl. A ttl of zero keeps the
// first successful result for the lifetime of the catalog.
func NewCatalog(provider Provider, ttl time.Duration, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		provider: provider,
		ttl:      ttl,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Products returns the cached product list, refreshing it when stale.
func (c *Catalog) Products(ctx context.Context) ([]Product, error) {
	if products, ok := c.cached(); ok {
		return products, nil
	}

	products, err := c.provider.ListApprovedProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved products: %w", err)
	}
	if products == nil {
		products = []Product{}
	}

	index := make(map[string]int, len(products))
	for i, p := range products {
		if _, dup := index[p.RegNr]; !dup {
			index[p.RegNr] = i
		}
	}

	c.mu.Lock()
	c.products = products
	c.byRegNr = index
	c.fetchedAt = c.clock()
	c.mu.Unlock()

	return cloneProducts(products), nil
}

// Get returns the product with the given registration number.
func (c *Catalog) Get(ctx context.Context, regNr string) (Product, error) {
	if _, err := c.Products(ctx); err != nil {
		return Product{}, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byRegNr[regNr]
	if !ok {
		return Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, regNr)
	}
	return c.products[i], nil
}

// Search returns products whose name contains query.
func (c *Catalog) Search(ctx context.Context, query string) ([]Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Search(products, query), nil
}

func (c *Catalog) cached() ([]Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.products == nil {
		return nil, false
	}
	if c.ttl > 0 && c.clock().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return cloneProducts(c.products), true
}

func cloneProducts(src []Product) []Product {
	out := make([]Product, len(src))
	copy(out, src)
	return out
}
