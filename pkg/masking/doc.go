// Package masking provides PII detection and masking for conversational
// text.
//
// The package has three layers:
//
//   - Detector runs a set of regex recognizers over text and produces
//     scored Entity spans. Recognizers for checksummable formats (credit
//     cards, IBANs) validate candidates before reporting them.
//
//   - Anonymizer applies a per-entity-type RuleSet to detected spans,
//     either replacing a span with a fixed token ({{EMAIL}}) or partially
//     masking it (123-45-****). Overlapping spans are resolved by keeping
//     the highest-confidence entity.
//
//   - Pipeline wires the two together behind a confidence threshold and a
//     deployment-wide enable switch.
//
// The masking contract is the privacy boundary of the relay: user text is
// passed through Mask before it is stored in a session transcript,
// forwarded to a generation provider, or emitted to the audit log. All
// types are safe for concurrent use after construction.
package masking
