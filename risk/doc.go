// Package risk computes normalized authentication risk scores from weighted
// contextual factors.
//
// Scores range from 0.0 (safe) to 1.0 (maximum risk) and are the weighted
// average of the factors that are available for a request: an unavailable
// factor is excluded from both numerator and denominator, never assumed safe
// or hostile. A total engine failure fails closed to the maximum score.
package risk
