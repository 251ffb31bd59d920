package masking

import (
	"strings"
	"testing"
)

func TestPipelineMaskEmail(t *testing.T) {
	p, err := NewPipeline(nil, 0.5, true)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	got := p.Mask("My email is john@x.com")
	want := "My email is {{EMAIL}}"
	if got != want {
		t.Errorf("Mask() = %q, want %q", got, want)
	}
}

func TestPipelineMaskSSN(t *testing.T) {
	p, err := NewPipeline(nil, 0.5, true)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	got := p.Mask("my ssn is 123-45-6789")
	if strings.Contains(got, "123-45-6789") {
		t.Errorf("masked output leaks the SSN: %q", got)
	}
	if !strings.Contains(got, "123-45-****") {
		t.Errorf("expected partial mask 123-45-****, got %q", got)
	}
}

func TestPipelineDisabledIsIdentity(t *testing.T) {
	p, err := NewPipeline(nil, 0.5, false)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	if p.Enabled() {
		t.Error("Enabled() = true for disabled pipeline")
	}
	text := "raw email john@x.com and ssn 123-45-6789"
	if got := p.Mask(text); got != text {
		t.Errorf("disabled Mask() = %q, want identity", got)
	}
}

func TestPipelineNoPIIIsIdentity(t *testing.T) {
	p, err := NewPipeline(nil, 0.5, true)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	text := "what is the weather like today"
	if got := p.Mask(text); got != text {
		t.Errorf("Mask() = %q, want identity for PII-free text", got)
	}
}

func TestPipelineMaskEntitiesReportsDetections(t *testing.T) {
	p, err := NewPipeline(nil, 0.5, true)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	masked, entities := p.MaskEntities("john@x.com and 192.168.1.1")
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d: %+v", len(entities), entities)
	}
	if strings.Contains(masked, "john@x.com") || strings.Contains(masked, "192.168.1.1") {
		t.Errorf("masked output leaks a span: %q", masked)
	}
}

func TestPipelineInvalidRulesFailsConstruction(t *testing.T) {
	rules := RuleSet{DefaultKey: {Strategy: Strategy("bogus")}}
	if _, err := NewPipeline(rules, 0.5, true); err == nil {
		t.Error("expected construction to fail with an invalid rule table")
	}
}

func TestPipelineConcurrentMask(t *testing.T) {
	p, err := NewPipeline(nil, 0.5, true)
	if err != nil {
		t.Fatalf("NewPipeline() error: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				got := p.Mask("contact me at john@x.com")
				if got != "contact me at {{EMAIL}}" {
					t.Errorf("concurrent Mask() = %q", got)
					return
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
