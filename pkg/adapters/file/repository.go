// Package file loads flow definitions from YAML or JSON files on disk.
//
// The expected layout is one flow per file, grouped by tenant:
//
//	flows/
//	  acme/
//	    welcome.yaml
//	    booking.yaml
//	  globex/
//	    menu.json
//
// A flow without tenant_id takes the name of its directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"gopkg.in/yaml.v3"
)

// Repository implements ports.FlowRepository over a directory tree.
type Repository struct {
	root string

	mu    sync.RWMutex
	flows map[string]map[string]domain.Flow
}

var _ ports.FlowRepository = (*Repository)(nil)

// Open loads every flow under root. Invalid flows make Open fail.
func Open(root string) (*Repository, error) {
	r := &Repository{root: root}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the directory tree, replacing the loaded flows atomically.
func (r *Repository) Reload() error {
	flows := make(map[string]map[string]domain.Flow)
	var problems []error

	err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isFlowFile(path) {
			return nil
		}
		flow, err := LoadFile(path)
		if err != nil {
			problems = append(problems, err)
			return nil
		}
		if flow.TenantID == "" {
			flow.TenantID = filepath.Base(filepath.Dir(path))
		}
		if _, dup := flows[flow.TenantID][flow.ID]; dup {
			problems = append(problems, fmt.Errorf("%s: duplicate flow id %q for tenant %q", path, flow.ID, flow.TenantID))
			return nil
		}
		if flows[flow.TenantID] == nil {
			flows[flow.TenantID] = make(map[string]domain.Flow)
		}
		flows[flow.TenantID][flow.ID] = *flow
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", r.root, err)
	}
	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	r.mu.Lock()
	r.flows = flows
	r.mu.Unlock()
	return nil
}

// LoadFile decodes and validates a single flow file.
func LoadFile(path string) (*domain.Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var flow domain.Flow
	// YAML is a superset of JSON, so one decoder covers both formats.
	if err := yaml.Unmarshal(data, &flow); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if flow.Status == "" {
		flow.Status = domain.FlowActive
	}
	if err := domain.Validate(&flow); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &flow, nil
}

func isFlowFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// Tenants returns the tenants that own at least one flow.
func (r *Repository) Tenants() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.flows))
	for t := range r.flows {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ActiveFlows returns the tenant's active flows ordered by priority, then id.
func (r *Repository) ActiveFlows(ctx context.Context, tenantID string) ([]domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Flow
	for _, f := range r.flows[tenantID] {
		if f.IsActive() {
			out = append(out, f)
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

// GetFlow returns the flow regardless of status.
func (r *Repository) GetFlow(ctx context.Context, tenantID, flowID string) (*domain.Flow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.flows[tenantID][flowID]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return &f, nil
}

// All returns every flow of the tenant, whatever its status, ordered by id.
func (r *Repository) All(tenantID string) []domain.Flow {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Flow, 0, len(r.flows[tenantID]))
	for _, f := range r.flows[tenantID] {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
