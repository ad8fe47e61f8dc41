package model

// TestVerdict is the outcome of one test case within a submission.
type TestVerdict struct {
	Index  int     `json:"index"`
	Hidden bool    `json:"hidden"`
	Passed bool    `json:"passed"`
	Time   float64 `json:"time"` // seconds reported by the executor
}

// SubmissionResult is not stored; only its score reaches the leaderboard.
type SubmissionResult struct {
	ID        string        `json:"id"`
	RoomCode  string        `json:"room_code"`
	Username  string        `json:"username"`
	Language  string        `json:"language"`
	Passed    int           `json:"passed"`
	Total     int           `json:"total"`
	TotalTime float64       `json:"total_time"`
	Score     float64       `json:"score"`
	Verdicts  []TestVerdict `json:"verdicts"`
}

func (s *SubmissionResult) FormattedScore() string {
	return FormatScore(s.Score)
}
