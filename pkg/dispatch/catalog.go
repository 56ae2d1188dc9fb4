package dispatch

import (
	"context"
	"errors"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/interpolate"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// ErrNoCatalog is returned by FetchItems when no catalog was configured.
var ErrNoCatalog = errors.New("dispatch: no catalog configured")

// SearchConfig is the config of a search_items action.
type SearchConfig struct {
	Category string `mapstructure:"category"`
	Text     string `mapstructure:"text"`
	Limit    int    `mapstructure:"limit"`
	// Variable receives the found items. Defaults to "items"; the count is
	// stored in <Variable>_count.
	Variable string `mapstructure:"variable"`
}

func (d *Dispatcher) searchItems(ctx context.Context, config, vars map[string]any) (map[string]any, error) {
	var cfg SearchConfig
	if err := decode(interpolate.Map(config, vars), &cfg); err != nil {
		return errorMarker(err.Error()), nil
	}
	name := cfg.Variable
	if name == "" {
		name = "items"
	}
	if d.catalog == nil {
		return errorMarker(ErrNoCatalog.Error()), nil
	}

	items, err := d.catalog.SearchItems(ctx, ports.CatalogQuery{Category: cfg.Category, Text: cfg.Text, Limit: cfg.Limit})
	if err != nil {
		d.logger.Warn("search_items failed", "category", cfg.Category, "err", err)
		return errorMarker(err.Error()), nil
	}

	list := make([]any, len(items))
	for i, it := range items {
		list[i] = it.AsVariable()
	}
	return map[string]any{
		name:            list,
		name + "_count": len(items),
	}, nil
}

// FetchItems implements ports.ItemSource on top of the catalog. The query uses the
// same keys as a search_items config.
func (d *Dispatcher) FetchItems(ctx context.Context, query, vars map[string]any) ([]domain.Item, error) {
	if d.catalog == nil {
		return nil, ErrNoCatalog
	}
	var cfg SearchConfig
	if err := decode(interpolate.Map(query, vars), &cfg); err != nil {
		return nil, err
	}
	return d.catalog.SearchItems(ctx, ports.CatalogQuery{Category: cfg.Category, Text: cfg.Text, Limit: cfg.Limit})
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
