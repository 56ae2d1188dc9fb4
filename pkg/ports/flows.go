package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// FlowRepository resolves flow definitions. Storage of definitions lives outside the engine.
type FlowRepository interface {
	// ActiveFlows returns the tenant's active flows sorted by ascending priority.
	ActiveFlows(ctx context.Context, tenantID string) ([]domain.Flow, error)

	// GetFlow returns a flow by id regardless of status.
	// Returns domain.ErrFlowNotFound if the flow does not exist (or was deleted).
	GetFlow(ctx context.Context, tenantID, flowID string) (*domain.Flow, error)
}

// TextNormalizer folds case and strips punctuation before keyword matching.
type TextNormalizer interface {
	Normalize(text string) string
}
