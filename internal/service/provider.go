package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeRequest asks a mobile-money provider to debit the buyer's phone.
type ChargeRequest struct {
	OrderID   uint64
	Amount    decimal.Decimal
	Phone     string
	Reference string
}

// ChargeResult carries the provider's transaction reference.
type ChargeResult struct {
	Reference string
}

// Provider charges a buyer.  Any error aborts the settlement.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// ErrProviderDeclined is returned by MockProvider when configured to fail.
var ErrProviderDeclined = errors.New("payment declined")

// MockProvider approves every charge unless Fail is set.
type MockProvider struct {
	Name string
	Fail bool
}

func (m MockProvider) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return ChargeResult{}, err
	}
	if m.Fail {
		return ChargeResult{}, fmt.Errorf("%s: %w", m.Name, ErrProviderDeclined)
	}
	return ChargeResult{Reference: fmt.Sprintf("%s_txn_%s", m.Name, uuid.New().String()[:8])}, nil
}

// ProviderRegistry maps provider names to implementations.
type ProviderRegistry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewProviderRegistry returns a registry with the mock momo and mgurush
// providers installed.
func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{providers: map[string]Provider{}}
	r.Register("momo", MockProvider{Name: "momo"})
	r.Register("mgurush", MockProvider{Name: "mgurush"})
	return r
}

func (r *ProviderRegistry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(name)] = p
}

func (r *ProviderRegistry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Names lists registered providers in sorted order.
func (r *ProviderRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
