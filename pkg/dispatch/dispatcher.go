// Package dispatch is the reference ActionDispatcher. It routes api_action nodes
// to handlers registered by action type.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Built-in action types.
const (
	ActionCreateRecord = "create_record"
	ActionSearchItems  = "search_items"
	ActionWebhook      = "webhook"
)

// Handler executes one action type. config is the node's raw config; vars is a
// read-only snapshot of the execution variables.
type Handler func(ctx context.Context, config, vars map[string]any) (map[string]any, error)

// Dispatcher implements ports.ActionDispatcher and ports.ItemSource.
type Dispatcher struct {
	handlers map[string]Handler
	records  ports.RecordCreator
	catalog  ports.Catalog
	client   *http.Client
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecordCreator backs create_record actions.
func WithRecordCreator(rc ports.RecordCreator) Option {
	return func(d *Dispatcher) {
		d.records = rc
	}
}

// WithCatalog backs search_items actions and show_items nodes.
func WithCatalog(c ports.Catalog) Option {
	return func(d *Dispatcher) {
		d.catalog = c
	}
}

// WithHTTPClient sets the client used by webhook actions.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.client = c
		}
	}
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHandler registers (or replaces) the handler of an action type.
func WithHandler(actionType string, h Handler) Option {
	return func(d *Dispatcher) {
		d.handlers[actionType] = h
	}
}

// New creates a Dispatcher with the built-in handlers registered.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		handlers: make(map[string]Handler),
		client:   &http.Client{},
		logger:   logging.NewNop(),
	}
	d.handlers[ActionCreateRecord] = d.createRecord
	d.handlers[ActionSearchItems] = d.searchItems
	d.handlers[ActionWebhook] = d.webhook
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var (
	_ ports.ActionDispatcher = (*Dispatcher)(nil)
	_ ports.ItemSource       = (*Dispatcher)(nil)
)

// Execute runs the handler registered for actionType. An unknown type yields an
// error marker in the result, not an error.
func (d *Dispatcher) Execute(ctx context.Context, actionType string, config, vars map[string]any) (map[string]any, error) {
	h, ok := d.handlers[actionType]
	if !ok {
		d.logger.Warn("unknown action type", "action_type", actionType)
		return map[string]any{domain.VarActionError: fmt.Sprintf("unknown action type %q", actionType)}, nil
	}
	return h(ctx, config, vars)
}
