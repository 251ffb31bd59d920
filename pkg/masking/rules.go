package masking

import (
	"fmt"
	"unicode/utf8"
)

// RuleSet maps entity types to masking rules. The special key "DEFAULT"
// supplies the rule for entity types with no explicit entry. The set is
// loaded from configuration at startup and is immutable afterwards; it is
// deployment-wide, never session-scoped.
type RuleSet map[string]Rule

// DefaultKey is the RuleSet entry applied to entity types without a rule
// of their own.
const DefaultKey = "DEFAULT"

// DefaultRules returns the built-in masking policy: replacement tokens for
// most entity types, trailing partial masks for card and SSN values so the
// surviving prefix stays useful for support conversations.
func DefaultRules() RuleSet {
	return RuleSet{
		DefaultKey:                  {Strategy: StrategyReplace, ReplaceWith: "{{PII}}"},
		string(EntityEmailAddress):  {Strategy: StrategyReplace, ReplaceWith: "{{EMAIL}}"},
		string(EntityPerson):        {Strategy: StrategyReplace, ReplaceWith: "{{NAME}}"},
		string(EntityPhoneNumber):   {Strategy: StrategyReplace, ReplaceWith: "{{PHONE}}"},
		string(EntityIPAddress):     {Strategy: StrategyReplace, ReplaceWith: "{{IP}}"},
		string(EntityIBANCode):      {Strategy: StrategyReplace, ReplaceWith: "{{IBAN}}"},
		string(EntityCreditCard):    {Strategy: StrategyPartialMask, MaskingChar: "*", CharsToMask: 4, FromEnd: true},
		string(EntityUSSSN):         {Strategy: StrategyPartialMask, MaskingChar: "*", CharsToMask: 4, FromEnd: true},
	}
}

// Validate checks every rule in the set and confirms a DEFAULT entry
// exists. It is called once at startup; an invalid rule table must prevent
// the service from starting.
func (rs RuleSet) Validate() error {
	if _, ok := rs[DefaultKey]; !ok {
		return fmt.Errorf("masking rules: missing %q entry", DefaultKey)
	}
	for entity, rule := range rs {
		if err := validateRule(rule); err != nil {
			return fmt.Errorf("masking rules: entity %q: %w", entity, err)
		}
	}
	return nil
}

func validateRule(rule Rule) error {
	switch rule.Strategy {
	case StrategyReplace:
		if rule.ReplaceWith == "" {
			return fmt.Errorf("replace strategy requires replace_with")
		}
	case StrategyPartialMask:
		if rule.CharsToMask <= 0 {
			return fmt.Errorf("partial_mask strategy requires chars_to_mask > 0")
		}
		if utf8.RuneCountInString(rule.MaskingChar) != 1 {
			return fmt.Errorf("partial_mask strategy requires a single masking_char")
		}
	default:
		return fmt.Errorf("unknown strategy %q", rule.Strategy)
	}
	return nil
}

// ruleFor resolves the rule for an entity type, falling back to DEFAULT.
func (rs RuleSet) ruleFor(entityType EntityType) Rule {
	if rule, ok := rs[string(entityType)]; ok {
		return rule
	}
	return rs[DefaultKey]
}
