// Package trigger decides which flow, if any, a message starts.
package trigger

import (
	"sort"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/textnorm"
)

// DefaultMinConfidence is the classifier confidence below which an intent is ignored.
const DefaultMinConfidence = 0.5

// DefaultSubstantiveIntents are intents that carry a concrete request. A new
// conversation opening with one of them must not be captured by a greeting flow.
var DefaultSubstantiveIntents = []string{
	"product_search",
	"order_status",
	"sizing",
	"payment",
	"shipping",
	"complaint",
	"returns",
	"reservation",
	"menu",
}

// Matcher evaluates flow triggers. It is pure and safe for concurrent use.
type Matcher struct {
	normalizer    ports.TextNormalizer
	substantive   map[string]struct{}
	minConfidence float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithNormalizer replaces the default textnorm normalizer.
func WithNormalizer(n ports.TextNormalizer) Option {
	return func(m *Matcher) {
		if n != nil {
			m.normalizer = n
		}
	}
}

// WithSubstantiveIntents replaces DefaultSubstantiveIntents.
func WithSubstantiveIntents(intents ...string) Option {
	return func(m *Matcher) {
		m.substantive = toSet(intents)
	}
}

// WithMinConfidence overrides DefaultMinConfidence.
func WithMinConfidence(c float64) Option {
	return func(m *Matcher) {
		m.minConfidence = c
	}
}

// NewMatcher creates a Matcher.
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		normalizer:    textnorm.New(),
		substantive:   toSet(DefaultSubstantiveIntents),
		minConfidence: DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match returns the first active flow, in ascending priority, whose trigger fires
// for message. The input slice is not reordered.
func (m *Matcher) Match(flows []domain.Flow, message string, tc domain.TriggerContext) (*domain.Flow, bool) {
	ordered := make([]domain.Flow, 0, len(flows))
	for _, f := range flows {
		if f.IsActive() {
			ordered = append(ordered, f)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	intent := m.trustedIntent(tc)
	var text string
	var tokens []string
	normalized := false

	for i := range ordered {
		f := &ordered[i]
		switch f.Trigger.Type {
		case domain.TriggerKeyword:
			if !normalized {
				text = m.normalizer.Normalize(message)
				tokens = strings.Fields(text)
				normalized = true
			}
			if m.matchKeywords(f.Trigger, text, tokens) {
				return f, true
			}
		case domain.TriggerNewConversation:
			if !tc.IsNewConversation {
				continue
			}
			if _, ok := m.substantive[intent]; ok && intent != "" {
				continue
			}
			return f, true
		case domain.TriggerButtonClick:
			if tc.QuickReplyPayload != "" && tc.QuickReplyPayload == f.Trigger.Payload {
				return f, true
			}
		case domain.TriggerIntentMatch:
			if intent == "" {
				continue
			}
			for _, want := range f.Trigger.Intents {
				if want == intent {
					return f, true
				}
			}
		}
	}
	return nil, false
}

// trustedIntent returns the intent label when the classifier was confident enough.
func (m *Matcher) trustedIntent(tc domain.TriggerContext) string {
	if tc.Intent == nil || tc.Intent.Confidence < m.minConfidence {
		return ""
	}
	return tc.Intent.Label
}

func (m *Matcher) matchKeywords(td domain.TriggerDescriptor, text string, tokens []string) bool {
	if text == "" {
		return false
	}
	matched := 0
	total := 0
	for _, raw := range td.Keywords {
		kw := m.normalizer.Normalize(raw)
		if kw == "" {
			continue
		}
		total++
		hit := keywordHit(kw, text, tokens)
		if hit && td.MatchMode != domain.MatchAll {
			return true
		}
		if hit {
			matched++
		} else if td.MatchMode == domain.MatchAll {
			return false
		}
	}
	return td.MatchMode == domain.MatchAll && total > 0 && matched == total
}

// keywordHit reports whether some token contains the keyword. Keywords spanning
// several words are matched against the whole normalized text.
func keywordHit(kw, text string, tokens []string) bool {
	if strings.Contains(kw, " ") {
		return strings.Contains(text, kw)
	}
	for _, tok := range tokens {
		if strings.Contains(tok, kw) {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
