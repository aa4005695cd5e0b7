// Package cel provides a CEL (Common Expression Language) evaluator for the
// confidence band rules of the router.
//
// Conditions are typed boolean expressions over three doubles: p_value,
// confidence_high and confidence_low. Programs are compiled once and cached.
//
// Example usage:
//
//	evaluator, err := cel.NewEvaluator()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	matched, err := evaluator.Evaluate("p_value >= confidence_high", map[string]interface{}{
//	    "p_value":         0.995,
//	    "confidence_high": 0.99,
//	    "confidence_low":  0.95,
//	})
package cel
