package masking

import (
	"sort"
	"strings"
)

// Anonymizer rewrites detected PII spans according to a RuleSet.
// It holds no per-call state and is safe for concurrent use.
type Anonymizer struct {
	rules RuleSet
}

// NewAnonymizer validates the rule set and returns an Anonymizer.
func NewAnonymizer(rules RuleSet) (*Anonymizer, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Anonymizer{rules: rules}, nil
}

// Apply substitutes each retained entity span in text per its rule and
// returns the rewritten text. An empty entity set returns text unchanged.
// Output length may differ from input length; callers must not assume
// positional alignment with the source.
func (a *Anonymizer) Apply(text string, entities []Entity) string {
	if len(entities) == 0 {
		return text
	}

	kept := resolveOverlaps(entities)

	var b strings.Builder
	b.Grow(len(text))
	pos := 0
	for _, e := range kept {
		if e.Start < pos || e.End > len(text) {
			// Defensive bound check against malformed spans.
			continue
		}
		b.WriteString(text[pos:e.Start])
		b.WriteString(a.maskSpan(text[e.Start:e.End], e.Type))
		pos = e.End
	}
	b.WriteString(text[pos:])
	return b.String()
}

// resolveOverlaps drops overlapping spans, keeping the highest-score entity
// in each overlapping cluster. Ties break toward the earlier start.
func resolveOverlaps(entities []Entity) []Entity {
	sorted := make([]Entity, len(entities))
	copy(sorted, entities)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].End > sorted[j].End
	})

	kept := sorted[:0]
	for _, e := range sorted {
		if len(kept) == 0 {
			kept = append(kept, e)
			continue
		}
		last := &kept[len(kept)-1]
		if e.Start >= last.End {
			kept = append(kept, e)
			continue
		}
		// Overlap: the higher score wins; on a score tie the earlier
		// start (already kept) wins.
		if e.Score > last.Score {
			*last = e
		}
	}
	return kept
}

// maskSpan transforms one span according to the rule for its entity type.
func (a *Anonymizer) maskSpan(span string, entityType EntityType) string {
	rule := a.rules.ruleFor(entityType)
	switch rule.Strategy {
	case StrategyReplace:
		return rule.ReplaceWith
	case StrategyPartialMask:
		return partialMask(span, rule)
	default:
		// Unreachable after RuleSet.Validate, but never leak the span.
		return a.rules[DefaultKey].ReplaceWith
	}
}

// partialMask overwrites CharsToMask characters of span with the masking
// character. Spans shorter than CharsToMask are masked entirely.
func partialMask(span string, rule Rule) string {
	runes := []rune(span)
	n := rule.CharsToMask
	if n >= len(runes) {
		return strings.Repeat(rule.MaskingChar, len(runes))
	}
	masked := strings.Repeat(rule.MaskingChar, n)
	if rule.FromEnd {
		return string(runes[:len(runes)-n]) + masked
	}
	return masked + string(runes[n:])
}
