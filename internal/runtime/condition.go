package runtime

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/interpolate"
)

// evalCondition picks the branch of a condition node. Rules are tried in order and
// the first match wins; a rule's explicit target takes precedence over its
// condition_<i> edge. Without a match the default target, then the default edge, is used.
func (e *Engine) evalCondition(r *run, node *domain.Node) string {
	var cfg domain.ConditionConfig
	if !e.decode(node, &cfg) {
		return e.nextFrom(r, node, domain.HandleDefault)
	}

	for i, rule := range cfg.Rules {
		if !matchRule(rule, r.state.Variables) {
			continue
		}
		if rule.Target != "" {
			if _, ok := domain.FindNode(r.flow, rule.Target); ok {
				return rule.Target
			}
		}
		return e.nextFrom(r, node, domain.ConditionHandle(i))
	}

	if cfg.DefaultTarget != "" {
		if _, ok := domain.FindNode(r.flow, cfg.DefaultTarget); ok {
			return cfg.DefaultTarget
		}
	}
	return e.nextFrom(r, node, domain.HandleDefault)
}

// matchRule evaluates one rule. A missing variable satisfies no operator.
func matchRule(rule domain.ConditionRule, vars map[string]any) bool {
	v, ok := interpolate.Lookup(vars, rule.Variable)
	if !ok || v == nil {
		return false
	}
	actual := strings.TrimSpace(interpolate.Stringify(v))
	expected := strings.TrimSpace(rule.Value)

	switch rule.Operator {
	case domain.OpEquals:
		return strings.EqualFold(actual, expected)
	case domain.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected))
	case domain.OpGreaterThan, domain.OpLessThan:
		a, okA := parseNumber(actual)
		b, okB := parseNumber(expected)
		if !okA || !okB {
			return false
		}
		if rule.Operator == domain.OpGreaterThan {
			return a > b
		}
		return a < b
	case domain.OpExists:
		return !isEmpty(v)
	default:
		return false
	}
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return f, err == nil
}

func isEmpty(v any) bool {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}
