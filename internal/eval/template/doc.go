// Package template provides Handlebars rendering for routing annotations.
//
// Annotation templates are rendered once when the router is built, so the
// text appended to a message never depends on the message itself.
//
// Example usage:
//
//	engine := template.NewEngine()
//	caveat, err := engine.Render(
//	    " Note: confidence of {{confidence_low_pct}}% via conformal prediction.",
//	    map[string]interface{}{"confidence_low_pct": "95"},
//	)
//
// Available helpers:
//   - percent: {{percent confidence_low}} renders 0.95 as 95
//   - odds: {{odds confidence_low}} renders 0.95 as 1/20
package template
