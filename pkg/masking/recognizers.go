package masking

import (
	"net"
	"regexp"
	"strings"
)

// recognizer detects spans of one entity type in a text.
type recognizer struct {
	entityType EntityType

	// pattern matches candidate spans. If group is > 0, the span is the
	// given capture group rather than the whole match.
	pattern *regexp.Regexp
	group   int

	// score is the base confidence assigned to a raw pattern match.
	score float64

	// validate optionally checks a candidate span. Returning a score of 0
	// rejects the candidate; otherwise the returned score replaces the
	// base score.
	validate func(span string) float64
}

// defaultRecognizers returns the built-in recognizer set. Patterns are
// compiled here rather than at package init so that an invalid set surfaces
// as a startup error instead of an import-time panic.
func defaultRecognizers() ([]recognizer, error) {
	specs := []struct {
		entityType EntityType
		pattern    string
		group      int
		score      float64
		validate   func(string) float64
	}{
		{
			entityType: EntityEmailAddress,
			pattern:    `\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`,
			score:      1.0,
		},
		{
			// ITIN: area 900-999 with group digits 70-88, 90-92 or 94-99.
			// Must outrank US_SSN so the more specific type wins when
			// both patterns cover the same span.
			entityType: EntityUSITIN,
			pattern:    `\b9\d{2}[- ](?:7\d|8[0-8]|9[0-2]|9[4-9])[- ]\d{4}\b`,
			score:      0.9,
		},
		{
			entityType: EntityUSSSN,
			pattern:    `\b\d{3}[- ]\d{2}[- ]\d{4}\b`,
			score:      0.85,
		},
		{
			entityType: EntityCreditCard,
			pattern:    `\b(?:\d[ -]?){13,19}\b`,
			score:      0.6,
			validate:   validateLuhn,
		},
		{
			entityType: EntityIBANCode,
			pattern:    `\b[A-Z]{2}\d{2}[A-Za-z0-9]{11,30}\b`,
			score:      0.6,
			validate:   validateIBAN,
		},
		{
			entityType: EntityIPAddress,
			pattern:    `\b(?:\d{1,3}\.){3}\d{1,3}\b|\b(?:[0-9A-Fa-f]{1,4}:){2,7}[0-9A-Fa-f]{1,4}\b`,
			score:      0.95,
			validate:   validateIP,
		},
		{
			entityType: EntityPhoneNumber,
			pattern:    `(?:\+?\d{1,3}[-. ])?\(?\d{3}\)?[-. ]\d{3}[-. ]\d{4}\b`,
			score:      0.7,
		},
		{
			// Name following a conversational cue. Regex cannot match the
			// general case, so only cue-anchored names are reported.
			entityType: EntityPerson,
			pattern:    `(?i)\b(?:my name is|i am|i'm|this is|call me)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})`,
			group:      1,
			score:      0.85,
		},
		{
			// Generic state-license shape. Weak evidence: stays below the
			// default threshold unless a deployment opts in.
			entityType: EntityUSDriverLic,
			pattern:    `\b[A-Z]{1,2}\d{6,8}\b`,
			score:      0.3,
		},
		{
			// Nine bare digits. Weak evidence for the same reason.
			entityType: EntityUSPassport,
			pattern:    `\b\d{9}\b`,
			score:      0.3,
		},
	}

	recognizers := make([]recognizer, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.pattern)
		if err != nil {
			return nil, &InitError{Entity: s.entityType, Cause: err}
		}
		recognizers = append(recognizers, recognizer{
			entityType: s.entityType,
			pattern:    re,
			group:      s.group,
			score:      s.score,
			validate:   s.validate,
		})
	}
	return recognizers, nil
}

// validateLuhn applies the Luhn checksum to a candidate card number.
// Candidates that pass are reported with high confidence; the rest are
// rejected so phone-like digit runs do not surface as cards.
func validateLuhn(span string) float64 {
	digits := make([]int, 0, len(span))
	for _, r := range span {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, int(r-'0'))
		case r == ' ' || r == '-':
		default:
			return 0
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return 0
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	if sum%10 != 0 {
		return 0
	}
	return 1.0
}

// validateIBAN applies the ISO 13616 mod-97 check.
func validateIBAN(span string) float64 {
	s := strings.ToUpper(span)
	if len(s) < 15 || len(s) > 34 {
		return 0
	}
	// Move the country code and check digits to the end, then interpret
	// letters as numbers (A=10 .. Z=35) and reduce modulo 97.
	rearranged := s[4:] + s[:4]
	remainder := 0
	for _, r := range rearranged {
		switch {
		case r >= '0' && r <= '9':
			remainder = (remainder*10 + int(r-'0')) % 97
		case r >= 'A' && r <= 'Z':
			n := int(r-'A') + 10
			remainder = (remainder*100 + n) % 97
		default:
			return 0
		}
	}
	if remainder != 1 {
		return 0
	}
	return 1.0
}

// validateIP confirms the candidate parses as a real IPv4/IPv6 address,
// rejecting shapes like 999.1.1.1 that the pattern alone would accept.
func validateIP(span string) float64 {
	if net.ParseIP(span) == nil {
		return 0
	}
	return 0.95
}
