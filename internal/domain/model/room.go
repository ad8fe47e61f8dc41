package model

import (
	"time"
)

type TestCase struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Room is a single timed contest. Its content is fixed once created.
type Room struct {
	Code            string        `json:"code"`
	Question        string        `json:"question"`
	QuestionSlug    string        `json:"question_slug"`
	PublicTestCases []TestCase    `json:"public_test_cases"`
	HiddenTestCases []TestCase    `json:"hidden_test_cases"`
	StartTime       time.Time     `json:"start_time"`
	Duration        time.Duration `json:"duration"`
}

// AllTestCases returns public cases followed by hidden ones.
func (r *Room) AllTestCases() []TestCase {
	all := make([]TestCase, 0, len(r.PublicTestCases)+len(r.HiddenTestCases))
	all = append(all, r.PublicTestCases...)
	return append(all, r.HiddenTestCases...)
}

func (r *Room) Deadline() time.Time {
	return r.StartTime.Add(r.Duration)
}

// TimeLeft is clamped at zero.
func (r *Room) TimeLeft(now time.Time) time.Duration {
	left := r.Duration - now.Sub(r.StartTime)
	if left < 0 {
		return 0
	}
	return left
}

// IsOver reports whether submissions are closed. The deadline instant itself is still open.
func (r *Room) IsOver(now time.Time) bool {
	return now.After(r.Deadline())
}
