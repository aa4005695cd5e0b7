// Package scoring computes how typical a text is relative to the baseline.
//
// A Scorer asks its Capability for the text's log-likelihood, then computes
// the one-sided empirical p-value against the baseline distribution. Failures
// of the capability surface as *ScoringError and are never retried here.
package scoring
