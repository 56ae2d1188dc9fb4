package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/textnorm"
	"github.com/google/uuid"
)

// Catalog is an in-memory ports.Catalog.
type Catalog struct {
	items []domain.Item
}

// NewCatalog creates a catalog over items.
func NewCatalog(items ...domain.Item) *Catalog {
	return &Catalog{items: items}
}

// SearchItems filters by exact category and accent-insensitive text on name or
// description, in catalog order.
func (c *Catalog) SearchItems(ctx context.Context, q ports.CatalogQuery) ([]domain.Item, error) {
	text := textnorm.Normalize(q.Text)
	var out []domain.Item
	for _, it := range c.items {
		if q.Category != "" && !strings.EqualFold(it.Category, q.Category) {
			continue
		}
		if text != "" &&
			!strings.Contains(textnorm.Normalize(it.Name), text) &&
			!strings.Contains(textnorm.Normalize(it.Description), text) {
			continue
		}
		out = append(out, it)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// Record is a business record created by a create_record action.
type Record struct {
	ID     string
	Kind   string
	Fields map[string]any
}

// RecordBook is an in-memory ports.RecordCreator.
type RecordBook struct {
	mu      sync.Mutex
	records []Record
}

// NewRecordBook creates an empty RecordBook.
func NewRecordBook() *RecordBook {
	return &RecordBook{}
}

// CreateRecord stores the record and returns its generated id.
func (b *RecordBook) CreateRecord(ctx context.Context, kind string, fields map[string]any) (string, error) {
	if kind == "" {
		return "", fmt.Errorf("record kind is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	b.records = append(b.records, Record{ID: id, Kind: kind, Fields: fields})
	return id, nil
}

// Records returns the records created so far.
func (b *RecordBook) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Record(nil), b.records...)
}

var (
	_ ports.Catalog       = (*Catalog)(nil)
	_ ports.RecordCreator = (*RecordBook)(nil)
)
