package masking

// Pipeline composes the Detector and Anonymizer into a single masking
// operation with a confidence threshold and an enable switch.
//
// A disabled pipeline turns Mask into the identity function. That is a
// deliberate, configuration-driven privacy trade-off (for deployments that
// need raw text end to end), not an error state.
//
// The pipeline is stateless across calls beyond its read-only recognizer
// set and rule table, so one instance serves all in-flight requests.
type Pipeline struct {
	detector   *Detector
	anonymizer *Anonymizer
	threshold  float64
	enabled    bool
}

// NewPipeline constructs the masking pipeline. When enabled is true and
// the detector or rule table cannot initialize, the error is returned so
// the caller can refuse to start: the service must never run claiming
// masking is on while it is non-functional.
func NewPipeline(rules RuleSet, threshold float64, enabled bool) (*Pipeline, error) {
	detector, err := NewDetector()
	if err != nil {
		return nil, err
	}
	anonymizer, err := NewAnonymizer(rules)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		detector:   detector,
		anonymizer: anonymizer,
		threshold:  threshold,
		enabled:    enabled,
	}, nil
}

// Enabled reports whether masking is active for this deployment.
func (p *Pipeline) Enabled() bool {
	return p.enabled
}

// Mask returns text with all detected PII spans rewritten. When the
// pipeline is disabled it returns text unchanged.
func (p *Pipeline) Mask(text string) string {
	masked, _ := p.MaskEntities(text)
	return masked
}

// MaskEntities is Mask plus the retained detection results, for callers
// that record masking activity (the detected entities themselves are never
// persisted).
func (p *Pipeline) MaskEntities(text string) (string, []Entity) {
	if !p.enabled || text == "" {
		return text, nil
	}
	entities := p.detector.Detect(text, p.threshold)
	if len(entities) == 0 {
		return text, nil
	}
	return p.anonymizer.Apply(text, entities), entities
}
