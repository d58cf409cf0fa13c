// Package guda exact verification of integer results
package guda

import (
	"fmt"
)

// VerificationResult describes how an actual result differs from the
// expected one.
type VerificationResult struct {
	NumErrors  int
	TotalItems int
	FirstError int // Index of first error, -1 if none
	Expected   int32
	Actual     int32
	LengthDiff int // len(actual) - len(expected)
}

// VerifyInt32 compares two int32 arrays element by element. Integer
// arithmetic is exact, so there is no tolerance: any difference is an error.
func VerifyInt32(expected, actual []int32) VerificationResult {
	result := VerificationResult{
		TotalItems: len(expected),
		FirstError: -1,
		LengthDiff: len(actual) - len(expected),
	}

	if len(expected) != len(actual) {
		// Arrays have different lengths
		result.NumErrors = max(len(expected), len(actual))
		result.FirstError = min(len(expected), len(actual))
		return result
	}

	for i := range expected {
		if expected[i] != actual[i] {
			result.NumErrors++
			if result.FirstError == -1 {
				result.FirstError = i
				result.Expected = expected[i]
				result.Actual = actual[i]
			}
		}
	}
	return result
}

// OK reports whether the arrays matched.
func (r VerificationResult) OK() bool {
	return r.NumErrors == 0
}

// String formats the verification result for display
func (r VerificationResult) String() string {
	if r.NumErrors == 0 {
		return fmt.Sprintf("PASS: all %d values match", r.TotalItems)
	}
	if r.LengthDiff != 0 {
		return fmt.Sprintf("FAIL: expected %d values, got %d", r.TotalItems, r.TotalItems+r.LengthDiff)
	}

	errorRate := float64(r.NumErrors) / float64(r.TotalItems) * 100
	return fmt.Sprintf("FAIL: %d/%d values differ (%.2f%%)\n"+
		"  First error at index %d: expected %d, got %d",
		r.NumErrors, r.TotalItems, errorRate,
		r.FirstError, r.Expected, r.Actual)
}
