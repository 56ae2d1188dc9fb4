// Package cache decorates a FlowRepository with a short-lived in-process cache.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL keeps flow definitions for a short time so edits propagate quickly.
const DefaultTTL = 30 * time.Second

// Repository caches ActiveFlows and GetFlow results of the wrapped repository.
// Misses and errors are never cached.
type Repository struct {
	next  ports.FlowRepository
	cache *gocache.Cache
}

var _ ports.FlowRepository = (*Repository)(nil)

// New wraps next. A non-positive ttl selects DefaultTTL.
func New(next ports.FlowRepository, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func activeKey(tenantID string) string { return "active:" + tenantID }

func flowKey(tenantID, flowID string) string { return "flow:" + tenantID + ":" + flowID }

// ActiveFlows returns the cached list or loads it from the wrapped repository.
func (r *Repository) ActiveFlows(ctx context.Context, tenantID string) ([]domain.Flow, error) {
	if v, ok := r.cache.Get(activeKey(tenantID)); ok {
		return v.([]domain.Flow), nil
	}
	flows, err := r.next.ActiveFlows(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(activeKey(tenantID), flows)
	return flows, nil
}

// GetFlow returns the cached flow or loads it from the wrapped repository.
func (r *Repository) GetFlow(ctx context.Context, tenantID, flowID string) (*domain.Flow, error) {
	if v, ok := r.cache.Get(flowKey(tenantID, flowID)); ok {
		f := v.(domain.Flow)
		return &f, nil
	}
	flow, err := r.next.GetFlow(ctx, tenantID, flowID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(flowKey(tenantID, flowID), *flow)
	return flow, nil
}

// Invalidate drops every cached entry of the tenant.
func (r *Repository) Invalidate(tenantID string) {
	r.cache.Delete(activeKey(tenantID))
	prefix := "flow:" + tenantID + ":"
	for k := range r.cache.Items() {
		if strings.HasPrefix(k, prefix) {
			r.cache.Delete(k)
		}
	}
}
