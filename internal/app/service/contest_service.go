package service

import (
	"contest_room/internal/app/executor"
	"contest_room/internal/common"
	"contest_room/internal/domain/model"
	"contest_room/internal/domain/repository"
	"contest_room/internal/platform/metrics"
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRoomDuration = 2 * time.Minute

	roomCodeLength   = 6
	roomCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	maxCodeAttempts  = 5
)

const demoQuestion = "Reverse a string"

var (
	demoPublicTestCases = []model.TestCase{
		{Input: "hello", Output: "olleh"},
	}
	demoHiddenTestCases = []model.TestCase{
		{Input: "abc", Output: "cba"},
		{Input: "world", Output: "dlrow"},
	}
)

// TestCasesPerRoom is the number of executor calls one submission makes.
func TestCasesPerRoom() int {
	return len(demoPublicTestCases) + len(demoHiddenTestCases)
}

// RandomRoomCode draws an uppercase base-36 code.
func RandomRoomCode() string {
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = roomCodeAlphabet[rand.IntN(len(roomCodeAlphabet))]
	}
	return string(b)
}

type ContestService struct {
	rooms       repository.RoomRepository
	leaderboard repository.LeaderboardRepository
	executor    executor.Executor
	metrics     *metrics.Metrics
	logger      *slog.Logger

	roomDuration time.Duration
	concurrency  int
	now          func() time.Time
	newCode      func() string
}

type Option func(*ContestService)

func WithRoomDuration(d time.Duration) Option {
	return func(s *ContestService) { s.roomDuration = d }
}

// WithConcurrency bounds in-flight executor calls per submission. 1 runs test cases one at a time.
func WithConcurrency(n int) Option {
	return func(s *ContestService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ContestService) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *ContestService) { s.now = now }
}

func WithCodeGenerator(gen func() string) Option {
	return func(s *ContestService) { s.newCode = gen }
}

func NewContestService(
	rooms repository.RoomRepository,
	leaderboard repository.LeaderboardRepository,
	exec executor.Executor,
	logger *slog.Logger,
	opts ...Option,
) *ContestService {
	s := &ContestService{
		rooms:        rooms,
		leaderboard:  leaderboard,
		executor:     exec,
		logger:       logger,
		roomDuration: DefaultRoomDuration,
		concurrency:  1,
		now:          time.Now,
		newCode:      RandomRoomCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom opens a new room with the demonstration question, starting now.
func (s *ContestService) CreateRoom(ctx context.Context) (*model.Room, error) {
	code, err := s.pickRoomCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &model.Room{
		Code:            code,
		Question:        demoQuestion,
		QuestionSlug:    slug.Make(demoQuestion),
		PublicTestCases: append([]model.TestCase(nil), demoPublicTestCases...),
		HiddenTestCases: append([]model.TestCase(nil), demoHiddenTestCases...),
		StartTime:       s.now(),
		Duration:        s.roomDuration,
	}
	if err := s.rooms.Save(ctx, room); err != nil {
		return nil, common.Errorf("failed to save room %s: %w", code, err)
	}

	s.metrics.RoomCreated()
	s.logger.Info("room created", "room", code, "question", room.QuestionSlug, "duration", room.Duration)
	return room, nil
}

// pickRoomCode redraws on collision a few times. If every draw is taken the last one
// is used and the older room is replaced.
func (s *ContestService) pickRoomCode(ctx context.Context) (string, error) {
	var code string
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code = s.newCode()
		taken, err := s.rooms.Exists(ctx, code)
		if err != nil {
			return "", common.Errorf("failed to check room code: %w", err)
		}
		if !taken {
			return code, nil
		}
		s.logger.Warn("room code collision", "room", code, "attempt", attempt)
	}
	return code, nil
}

// RoomDetails is what a joining player may see. Hidden test cases are left out.
type RoomDetails struct {
	Code            string
	Question        string
	QuestionSlug    string
	PublicTestCases []model.TestCase
	TimeLeft        time.Duration
	Languages       []model.Language
}

func (d *RoomDetails) SecondsLeft() int64 {
	return int64(d.TimeLeft.Round(time.Second) / time.Second)
}

func (s *ContestService) JoinRoom(ctx context.Context, code string) (*RoomDetails, error) {
	room, err := s.rooms.FindByCode(ctx, code)
	if err != nil {
		return nil, common.Errorf("room %q: %w", code, err)
	}
	return &RoomDetails{
		Code:            room.Code,
		Question:        room.Question,
		QuestionSlug:    room.QuestionSlug,
		PublicTestCases: room.PublicTestCases,
		TimeLeft:        room.TimeLeft(s.now()),
		Languages:       model.Languages,
	}, nil
}

type SubmitCodeRequest struct {
	RoomCode string `json:"roomCode"`
	Username string `json:"username"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

// missingFields lists the request fields that are empty or blank.
func (r SubmitCodeRequest) missingFields() []string {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"roomCode", r.RoomCode},
		{"username", r.Username},
		{"code", r.Code},
		{"language", r.Language},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// SubmitCode runs the code against every test case of the room, public first, and records the
// score for the user. Any executor failure aborts the submission without touching the leaderboard.
func (s *ContestService) SubmitCode(ctx context.Context, req SubmitCodeRequest) (*model.SubmissionResult, error) {
	if missing := req.missingFields(); len(missing) > 0 {
		s.metrics.ObserveSubmission(metrics.OutcomeInvalidRequest)
		return nil, common.Errorf("missing %s: %w", strings.Join(missing, ", "), common.ErrBadRequest)
	}

	room, err := s.rooms.FindByCode(ctx, req.RoomCode)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			s.metrics.ObserveSubmission(metrics.OutcomeRoomNotFound)
		}
		return nil, common.Errorf("room %q: %w", req.RoomCode, err)
	}

	if room.IsOver(s.now()) {
		s.metrics.ObserveSubmission(metrics.OutcomeContestOver)
		s.logger.Info("submission rejected, contest over", "room", room.Code, "user", req.Username)
		return nil, common.Errorf("room %s closed at %s: %w", room.Code, room.Deadline().Format(time.RFC3339), common.ErrContestOver)
	}

	lang, ok := model.LookupLanguage(req.Language)
	if !ok {
		s.metrics.ObserveSubmission(metrics.OutcomeUnknownLanguage)
		return nil, common.Errorf("language %q: %w", req.Language, common.ErrUnknownLanguage)
	}

	result := &model.SubmissionResult{
		ID:       uuid.NewString(),
		RoomCode: room.Code,
		Username: req.Username,
		Language: lang.Key,
	}
	logger := s.logger.With("submission", result.ID, "room", room.Code, "user", req.Username)

	verdicts, err := s.runTests(ctx, room, req.Code, lang.JudgeID)
	if err != nil {
		s.metrics.ObserveSubmission(metrics.OutcomeExecutorError)
		logger.Error("execution failed", "error", err)
		return nil, common.Errorf("failed to judge submission: %w", err)
	}

	result.Verdicts = verdicts
	result.Total = len(verdicts)
	result.Passed, result.TotalTime = Tally(verdicts)
	result.Score = ComputeScore(result.Passed, result.TotalTime)

	entry := model.LeaderboardEntry{Username: req.Username, Score: result.FormattedScore()}
	if err := s.leaderboard.Upsert(ctx, entry); err != nil {
		return nil, common.Errorf("failed to record score: %w", err)
	}

	s.metrics.ObserveSubmission(metrics.OutcomeScored)
	s.metrics.ObserveScore(result.Score)
	logger.Info("submission scored",
		"language", lang.Key,
		"passed", result.Passed,
		"total", result.Total,
		"time", result.TotalTime,
		"score", entry.Score)
	return result, nil
}

// runTests executes all test cases with at most s.concurrency calls in flight.
// Verdicts keep public-then-hidden order regardless of completion order.
func (s *ContestService) runTests(ctx context.Context, room *model.Room, code string, languageID int) ([]model.TestVerdict, error) {
	tests := room.AllTestCases()
	verdicts := make([]model.TestVerdict, len(tests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, tc := range tests {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res, err := s.executor.Execute(gctx, code, tc.Input, languageID)
			s.metrics.ObserveExecutorCall(err, time.Since(start))
			if err != nil {
				return common.Errorf("test %d: %w", i+1, err)
			}
			verdicts[i] = model.TestVerdict{
				Index:  i,
				Hidden: i >= len(room.PublicTestCases),
				Passed: OutputMatches(res.Stdout, tc.Output),
				Time:   float64(res.Time),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verdicts, nil
}

func (s *ContestService) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	entries, err := s.leaderboard.List(ctx)
	if err != nil {
		return nil, common.Errorf("failed to list leaderboard: %w", err)
	}
	return entries, nil
}
