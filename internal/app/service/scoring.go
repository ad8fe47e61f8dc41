package service

import (
	"contest_room/internal/domain/model"
	"strings"
	"unicode"
)

const (
	pointsPerTest    = 100
	penaltyPerSecond = 10
)

// ComputeScore rewards passed tests and penalizes total reported execution time in seconds.
func ComputeScore(passed int, totalTime float64) float64 {
	return float64(passed)*pointsPerTest - totalTime*penaltyPerSecond
}

// OutputMatches compares trimmed stdout with the expected output exactly.
// A missing stdout never matches.
func OutputMatches(stdout *string, expected string) bool {
	return stdout != nil && strings.TrimFunc(*stdout, isTrimmable) == expected
}

// isTrimmable covers control whitespace, line separators, the BOM and the Zs space
// separators. Unlike unicode.IsSpace it keeps U+0085.
func isTrimmable(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// Tally sums passes and execution time over verdicts.
func Tally(verdicts []model.TestVerdict) (passed int, totalTime float64) {
	for _, v := range verdicts {
		if v.Passed {
			passed++
		}
		totalTime += v.Time
	}
	return passed, totalTime
}
