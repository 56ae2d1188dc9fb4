package validation

import (
	"strconv"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// ResolveButton maps a user reply to a button and returns its 0-based index.
//
// Resolution order: exact case-insensitive match on label or value, then a 1-based
// numeric index, then a case-insensitive substring match in either direction
// between the reply and the label.
func ResolveButton(reply string, buttons []domain.Button) (int, bool) {
	candidates := make([][]string, len(buttons))
	for i, b := range buttons {
		candidates[i] = []string{b.Label, b.Value}
	}
	return resolve(reply, candidates)
}

// ResolveItem maps a user reply to one of the shown items: exact name, then the
// 1-based position in the rendered list, then name substring, then exact id.
// Ids come last because catalogs often use numeric ids that would shadow positions.
func ResolveItem(reply string, items []domain.Item) (int, bool) {
	candidates := make([][]string, len(items))
	for i, it := range items {
		candidates[i] = []string{it.Name}
	}
	if idx, ok := resolve(reply, candidates); ok {
		return idx, true
	}
	clean := strings.TrimSpace(reply)
	for i, it := range items {
		if it.ID != "" && strings.EqualFold(it.ID, clean) {
			return i, true
		}
	}
	return 0, false
}

// resolve expects each candidate as {label, alias}; substring matching only uses the label.
func resolve(reply string, candidates [][]string) (int, bool) {
	clean := strings.ToLower(strings.TrimSpace(reply))
	if clean == "" || len(candidates) == 0 {
		return 0, false
	}

	for i, c := range candidates {
		for _, s := range c {
			if s != "" && strings.ToLower(strings.TrimSpace(s)) == clean {
				return i, true
			}
		}
	}

	if n, err := strconv.Atoi(clean); err == nil {
		if n >= 1 && n <= len(candidates) {
			return n - 1, true
		}
	}

	for i, c := range candidates {
		label := strings.ToLower(strings.TrimSpace(c[0]))
		if label == "" {
			continue
		}
		if strings.Contains(clean, label) || strings.Contains(label, clean) {
			return i, true
		}
	}
	return 0, false
}
