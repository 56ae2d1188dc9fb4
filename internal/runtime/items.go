package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/interpolate"
	"github.com/mitchellh/mapstructure"
)

const (
	defaultItemLimit = 5
	maxItemLimit     = 10
)

// showItems renders a show_items node and reports whether the walk must suspend
// for a selection. Shown items are cached under domain.VarLastShownItems so the
// selection can be resolved on the next message.
func (e *Engine) showItems(ctx context.Context, r *run, node *domain.Node) bool {
	var cfg domain.ShowItemsConfig
	if !e.decode(node, &cfg) {
		return false
	}
	vars := r.state.Variables

	items := e.loadItems(ctx, r, node, cfg)
	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultItemLimit
	}
	if limit > maxItemLimit {
		limit = maxItemLimit
	}
	if len(items) > limit {
		items = items[:limit]
	}

	if len(items) == 0 {
		r.say(interpolate.Render(cfg.EmptyMessage, vars))
		vars[domain.VarLastShownItems] = []any{}
		return false
	}

	title := interpolate.Render(cfg.Title, vars)
	if cfg.Display == domain.DisplayCards {
		r.say(title)
		cards := make([]domain.ProductCard, len(items))
		for i, it := range items {
			cards[i] = it.Card()
		}
		r.messages = append(r.messages, domain.Message{Type: domain.MessageProductCards, Cards: cards})
	} else {
		r.say(itemList(title, items))
	}

	cached := make([]any, len(items))
	for i, it := range items {
		cached[i] = it.AsVariable()
	}
	vars[domain.VarLastShownItems] = cached

	return cfg.SelectVariable != ""
}

func (e *Engine) loadItems(ctx context.Context, r *run, node *domain.Node, cfg domain.ShowItemsConfig) []domain.Item {
	source := cfg.Source
	if source == "" && cfg.Variable != "" {
		source = domain.ItemSourceVariable
	}

	if source == domain.ItemSourceVariable {
		raw, ok := interpolate.Lookup(r.state.Variables, cfg.Variable)
		if !ok {
			return nil
		}
		items, err := decodeItems(raw)
		if err != nil {
			e.logger.Warn("variable does not hold an item list", "node_id", node.ID, "variable", cfg.Variable, "err", err)
			return nil
		}
		return items
	}

	if e.items == nil {
		r.state.Variables[domain.VarActionError] = "no item source configured"
		return nil
	}
	query := interpolate.Map(cfg.Query, r.state.Variables)
	items, err := e.items.FetchItems(ctx, query, snapshot(r.state.Variables))
	if err != nil {
		e.logger.Warn("fetching items failed", "node_id", node.ID, "err", err)
		r.state.Variables[domain.VarActionError] = err.Error()
		return nil
	}
	return items
}

// decodeItems accepts either typed items or their generic map form.
func decodeItems(raw any) ([]domain.Item, error) {
	if items, ok := raw.([]domain.Item); ok {
		return items, nil
	}
	var items []domain.Item
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &items,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	return items, nil
}

func itemList(title string, items []domain.Item) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(title)
		sb.WriteString("\n")
	}
	for i, it := range items {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", i+1, it.Name)
		if it.Price > 0 {
			sb.WriteString(" - ")
			sb.WriteString(strconv.FormatFloat(it.Price, 'f', 2, 64))
		}
	}
	return sb.String()
}
