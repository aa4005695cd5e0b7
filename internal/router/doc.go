// Package router maps an empirical p-value to one of three confidence bands.
//
//	p >= confidence_high                  -> safe            (no annotation)
//	confidence_low <= p < confidence_high -> standard        (conformal caveat)
//	p < confidence_low                    -> low_confidence  (use-with-caution caveat)
//
// Bands are CEL rules evaluated in order with low_confidence as the fallback.
// Annotation templates are rendered once at construction, so Route has no
// hidden state and the same p-value always yields the same result.
//
// Example:
//
//	r, err := router.NewRouter(router.Config{
//	    ConfidenceHigh:          0.99,
//	    ConfidenceLow:           0.95,
//	    StandardAnnotation:      cfg.AnnotationStandard,
//	    LowConfidenceAnnotation: cfg.AnnotationLowConfidence,
//	}, logger)
//	decision, annotation := r.Route(0.97) // standard, " Note: ..."
package router
