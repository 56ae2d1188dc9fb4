package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// FlowRepository keeps flow definitions in memory and records their usage.
// It implements ports.FlowRepository and ports.AnalyticsSink.
type FlowRepository struct {
	mu      sync.RWMutex
	flows   map[string]map[string]*domain.Flow // tenant -> flow id -> flow
	records []domain.ExecutionRecord
}

var (
	_ ports.FlowRepository = (*FlowRepository)(nil)
	_ ports.AnalyticsSink  = (*FlowRepository)(nil)
)

// NewFlowRepository creates a repository holding the given flows.
func NewFlowRepository(flows ...domain.Flow) *FlowRepository {
	r := &FlowRepository{flows: make(map[string]map[string]*domain.Flow)}
	for _, f := range flows {
		r.Put(f)
	}
	return r
}

// Put adds or replaces a flow.
func (r *FlowRepository) Put(flow domain.Flow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byID, ok := r.flows[flow.TenantID]
	if !ok {
		byID = make(map[string]*domain.Flow)
		r.flows[flow.TenantID] = byID
	}
	f := flow
	byID[flow.ID] = &f
}

// Delete removes a flow. Executions still pointing at it end on their next message.
func (r *FlowRepository) Delete(tenantID, flowID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.flows[tenantID], flowID)
}

// ActiveFlows returns the tenant's active flows ordered by priority, then id.
func (r *FlowRepository) ActiveFlows(ctx context.Context, tenantID string) ([]domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Flow, 0, len(r.flows[tenantID]))
	for _, f := range r.flows[tenantID] {
		if f.IsActive() {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetFlow returns a copy of the flow regardless of status.
func (r *FlowRepository) GetFlow(ctx context.Context, tenantID, flowID string) (*domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[tenantID][flowID]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	cp := *f
	return &cp, nil
}

// FlowTriggered increments the flow's trigger counter.
func (r *FlowRepository) FlowTriggered(ctx context.Context, tenantID, flowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flows[tenantID][flowID]; ok {
		f.TimesTriggered++
		f.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// FlowCompleted increments the flow's completion counter and keeps the record.
func (r *FlowRepository) FlowCompleted(ctx context.Context, record domain.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.flows[record.TenantID][record.FlowID]; ok {
		f.TimesCompleted++
		f.UpdatedAt = time.Now().UTC()
	}
	r.records = append(r.records, record)
	return nil
}

// Records returns the completion records received so far.
func (r *FlowRepository) Records() []domain.ExecutionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ExecutionRecord(nil), r.records...)
}
