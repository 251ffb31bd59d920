package masking

// EntityType identifies a category of personally identifiable information.
type EntityType string

// Supported PII entity types.
const (
	EntityPerson        EntityType = "PERSON"
	EntityEmailAddress  EntityType = "EMAIL_ADDRESS"
	EntityPhoneNumber   EntityType = "PHONE_NUMBER"
	EntityUSSSN         EntityType = "US_SSN"
	EntityUSITIN        EntityType = "US_ITIN"
	EntityCreditCard    EntityType = "CREDIT_CARD"
	EntityIBANCode      EntityType = "IBAN_CODE"
	EntityIPAddress     EntityType = "IP_ADDRESS"
	EntityUSDriverLic   EntityType = "US_DRIVER_LICENSE"
	EntityUSPassport    EntityType = "US_PASSPORT"
)

// Entity is a single detected PII span within a source text.
// Start and End are byte offsets into the source text forming a
// half-open interval [Start, End).
type Entity struct {
	// Type is the PII category of the span.
	Type EntityType

	// Start is the byte offset of the first byte of the span.
	Start int

	// End is the byte offset one past the last byte of the span.
	End int

	// Score is the detection confidence in [0, 1].
	Score float64
}

// Strategy selects how a detected span is transformed.
type Strategy string

const (
	// StrategyReplace substitutes the entire span with a fixed token.
	StrategyReplace Strategy = "replace"

	// StrategyPartialMask keeps part of the span and overwrites the
	// remainder with a masking character.
	StrategyPartialMask Strategy = "partial_mask"
)

// Rule describes the masking policy for one entity type.
type Rule struct {
	// Strategy selects the transformation ("replace" or "partial_mask").
	Strategy Strategy `yaml:"strategy"`

	// ReplaceWith is the substitution token for the replace strategy,
	// e.g. "{{EMAIL}}".
	ReplaceWith string `yaml:"replace_with,omitempty"`

	// MaskingChar is the character used by the partial_mask strategy.
	MaskingChar string `yaml:"masking_char,omitempty"`

	// CharsToMask is how many characters the partial_mask strategy
	// overwrites. Spans shorter than this are masked entirely.
	CharsToMask int `yaml:"chars_to_mask,omitempty"`

	// FromEnd masks the trailing characters of the span instead of the
	// leading ones.
	FromEnd bool `yaml:"from_end,omitempty"`
}
