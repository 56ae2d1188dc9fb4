// Package interpolate substitutes collected variables into message templates.
//
// Placeholders have the form {{identifier}}. A placeholder whose variable is absent
// or nil is left untouched, braces included, so authors can spot unfilled templates.
package interpolate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Render replaces every {{identifier}} in template with the text form of vars[identifier].
// Dotted identifiers (item.name) walk nested maps when no exact key exists.
func Render(template string, vars map[string]any) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return placeholder.ReplaceAllStringFunc(template, func(match string) string {
		sub := placeholder.FindStringSubmatch(match)
		value, ok := Lookup(vars, sub[1])
		if !ok || value == nil {
			return match
		}
		return Stringify(value)
	})
}

// Map renders every string leaf of src, recursing into nested maps and slices.
// Non-string leaves are copied as-is.
func Map(src map[string]any, vars map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = renderValue(v, vars)
	}
	return out
}

func renderValue(v any, vars map[string]any) any {
	switch val := v.(type) {
	case string:
		return Render(val, vars)
	case map[string]any:
		return Map(val, vars)
	case []any:
		list := make([]any, len(val))
		for i, item := range val {
			list[i] = renderValue(item, vars)
		}
		return list
	default:
		return v
	}
}

// Lookup resolves an identifier against vars. An exact key wins over a dotted path.
func Lookup(vars map[string]any, name string) (any, bool) {
	if v, ok := vars[name]; ok {
		return v, true
	}
	if !strings.Contains(name, ".") {
		return nil, false
	}

	var current any = vars
	for _, part := range strings.Split(name, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Stringify coerces a variable value to its text form.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, Stringify(item))
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		if name, ok := val["name"]; ok {
			return Stringify(name)
		}
		return fmt.Sprint(val)
	default:
		return fmt.Sprint(val)
	}
}
