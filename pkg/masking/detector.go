package masking

import (
	"fmt"
	"sort"
)

// InitError indicates the detector could not be constructed, typically
// because a recognizer pattern failed to compile. Masking must fail closed
// on this error: a service claiming masking is enabled must not start.
type InitError struct {
	// Entity is the entity type whose recognizer failed.
	Entity EntityType

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *InitError) Error() string {
	return fmt.Sprintf("masking detector init failed for entity %q: %v", e.Entity, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *InitError) Unwrap() error {
	return e.Cause
}

// Detector runs PII entity recognition over text. The compiled recognizer
// set is read-only after construction, so a single Detector may be shared
// across concurrent callers without locking.
type Detector struct {
	recognizers []recognizer
}

// NewDetector builds a Detector with the built-in recognizer set.
func NewDetector() (*Detector, error) {
	recognizers, err := defaultRecognizers()
	if err != nil {
		return nil, err
	}
	return &Detector{recognizers: recognizers}, nil
}

// Detect returns all PII spans in text scoring at or above threshold.
// Spans may overlap; overlap resolution is the Anonymizer's job. The result
// is ordered by start offset, then by descending score.
func (d *Detector) Detect(text string, threshold float64) []Entity {
	if text == "" {
		return nil
	}

	var entities []Entity
	for _, rec := range d.recognizers {
		var spans [][]int
		if rec.group > 0 {
			for _, m := range rec.pattern.FindAllStringSubmatchIndex(text, -1) {
				lo, hi := m[2*rec.group], m[2*rec.group+1]
				if lo >= 0 && hi >= 0 {
					spans = append(spans, []int{lo, hi})
				}
			}
		} else {
			spans = rec.pattern.FindAllStringIndex(text, -1)
		}

		for _, span := range spans {
			score := rec.score
			if rec.validate != nil {
				score = rec.validate(text[span[0]:span[1]])
				if score == 0 {
					continue
				}
			}
			if score < threshold {
				continue
			}
			entities = append(entities, Entity{
				Type:  rec.entityType,
				Start: span[0],
				End:   span[1],
				Score: score,
			})
		}
	}

	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].Score > entities[j].Score
	})
	return entities
}
