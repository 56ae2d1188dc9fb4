package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiSink struct {
	next     ports.AnalyticsSink
	patterns []*regexp.Regexp
}

// NewPIIMiddleware masks the completion-record variables whose name matches
// any of the patterns before they reach the analytics sink. Live executions
// keep the real values.
func NewPIIMiddleware(patterns []string) (SinkMiddleware, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pii pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return func(next ports.AnalyticsSink) ports.AnalyticsSink {
		return &piiSink{next: next, patterns: compiled}
	}, nil
}

func (m *piiSink) FlowTriggered(ctx context.Context, tenantID, flowID string) error {
	return m.next.FlowTriggered(ctx, tenantID, flowID)
}

func (m *piiSink) FlowCompleted(ctx context.Context, record domain.ExecutionRecord) error {
	record.Variables = deepCopyMap(record.Variables)
	maskMap(record.Variables, m.patterns)
	return m.next.FlowCompleted(ctx, record)
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(sub)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if sub, ok := v.(map[string]any); ok && !masked {
			maskMap(sub, patterns)
		}
	}
}
