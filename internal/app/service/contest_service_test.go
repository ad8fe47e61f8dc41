package service

import (
	"contest_room/internal/app/executor"
	"contest_room/internal/common"
	"contest_room/internal/domain/model"
	"contest_room/internal/domain/repository"
	"contest_room/internal/platform/logging"
	"contest_room/internal/platform/metrics"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type call struct {
	code, stdin string
	languageID  int
}

// fakeExecutor answers with run(stdin). It records calls and tracks peak concurrency.
type fakeExecutor struct {
	run func(code, stdin string) (*executor.Result, error)

	mu       sync.Mutex
	calls    []call
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeExecutor) Execute(ctx context.Context, code, stdin string, languageID int) (*executor.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{code: code, stdin: stdin, languageID: languageID})
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.run(code, stdin)
}

func (f *fakeExecutor) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func strPtr(s string) *string { return &s }

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

// reverser answers correctly with a trailing newline, like a real program would.
func reverser(elapsed string) func(string, string) (*executor.Result, error) {
	return func(_, stdin string) (*executor.Result, error) {
		var secs executor.Seconds
		if err := secs.UnmarshalJSON([]byte(elapsed)); err != nil {
			return nil, err
		}
		return &executor.Result{Stdout: strPtr(reverse(stdin) + "\n"), Time: secs}, nil
	}
}

type fixture struct {
	svc         *ContestService
	clock       *fakeClock
	exec        *fakeExecutor
	leaderboard repository.LeaderboardRepository
}

func newFixture(t *testing.T, run func(string, string) (*executor.Result, error), opts ...Option) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	exec := &fakeExecutor{run: run}
	lb := repository.NewMemoryLeaderboardRepository()
	opts = append([]Option{WithClock(clock.Now), WithMetrics(metrics.New())}, opts...)
	svc := NewContestService(repository.NewMemoryRoomRepository(), lb, exec, logging.Discard(), opts...)
	return &fixture{svc: svc, clock: clock, exec: exec, leaderboard: lb}
}

func (f *fixture) createRoom(t *testing.T) *model.Room {
	t.Helper()
	room, err := f.svc.CreateRoom(context.Background())
	require.NoError(t, err)
	return room
}

func (f *fixture) submit(t *testing.T, room, user, lang string) (*model.SubmissionResult, error) {
	t.Helper()
	return f.svc.SubmitCode(context.Background(), SubmitCodeRequest{
		RoomCode: room, Username: user, Code: "print(input()[::-1])", Language: lang,
	})
}

func TestCreateRoom(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)

	require.Len(t, room.Code, 6)
	require.Equal(t, strings.ToUpper(room.Code), room.Code)
	for _, c := range room.Code {
		require.True(t, strings.ContainsRune(roomCodeAlphabet, c), "unexpected char %q", c)
	}
	require.Equal(t, "Reverse a string", room.Question)
	require.Equal(t, "reverse-a-string", room.QuestionSlug)
	require.Len(t, room.PublicTestCases, 1)
	require.Len(t, room.HiddenTestCases, 2)
	require.Equal(t, 2*time.Minute, room.Duration)
	require.Equal(t, f.clock.Now(), room.StartTime)
}

func TestCreateRoomRetriesOnCollision(t *testing.T) {
	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	next := 0
	gen := func() string {
		c := codes[next]
		next++
		return c
	}
	f := newFixture(t, reverser("null"), WithCodeGenerator(gen))

	first := f.createRoom(t)
	second := f.createRoom(t)

	require.Equal(t, "AAAAAA", first.Code)
	require.Equal(t, "BBBBBB", second.Code)
}

func TestCreateRoomOverwritesWhenEveryDrawCollides(t *testing.T) {
	f := newFixture(t, reverser("null"), WithCodeGenerator(func() string { return "SAME00" }))

	f.createRoom(t)
	f.clock.Advance(time.Minute)
	room := f.createRoom(t)
	require.Equal(t, "SAME00", room.Code)

	details, err := f.svc.JoinRoom(context.Background(), "SAME00")
	require.NoError(t, err)
	require.Equal(t, 2*time.Minute, details.TimeLeft)
}

func TestJoinRoom(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)

	details, err := f.svc.JoinRoom(context.Background(), room.Code)
	require.NoError(t, err)
	require.Equal(t, room.Question, details.Question)
	require.Equal(t, room.PublicTestCases, details.PublicTestCases)
	require.EqualValues(t, 120, details.SecondsLeft())
	require.Equal(t, model.Languages, details.Languages)

	f.clock.Advance(45*time.Second + 400*time.Millisecond)
	details, err = f.svc.JoinRoom(context.Background(), room.Code)
	require.NoError(t, err)
	require.EqualValues(t, 75, details.SecondsLeft())

	f.clock.Advance(10 * time.Minute)
	details, err = f.svc.JoinRoom(context.Background(), room.Code)
	require.NoError(t, err)
	require.Zero(t, details.TimeLeft)
}

func TestJoinUnknownRoom(t *testing.T) {
	f := newFixture(t, reverser("null"))

	_, err := f.svc.JoinRoom(context.Background(), "NOPE00")
	require.ErrorIs(t, err, common.ErrNotFound)

	entries, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSubmitAllPass(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)

	res, err := f.submit(t, room.Code, "alice", "python")
	require.NoError(t, err)
	require.Equal(t, 3, res.Passed)
	require.Equal(t, 3, res.Total)
	require.Equal(t, "300.00", res.FormattedScore())

	calls := f.exec.Calls()
	require.Len(t, calls, 3)
	require.Equal(t, []string{"hello", "abc", "world"}, []string{calls[0].stdin, calls[1].stdin, calls[2].stdin})
	for _, c := range calls {
		require.Equal(t, 71, c.languageID)
		require.Equal(t, "print(input()[::-1])", c.code)
	}
	require.False(t, res.Verdicts[0].Hidden)
	require.True(t, res.Verdicts[1].Hidden)
	require.True(t, res.Verdicts[2].Hidden)

	entries, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.LeaderboardEntry{{Username: "alice", Score: "300.00"}}, entries)
}

func TestSubmitPartialWithTimePenalty(t *testing.T) {
	// passes only "hello"; total reported time 2.5s
	times := map[string]executor.Seconds{"hello": 1.0, "abc": 0.75, "world": 0.75}
	f := newFixture(t, func(_, stdin string) (*executor.Result, error) {
		if stdin == "hello" {
			return &executor.Result{Stdout: strPtr("  olleh \n"), Time: times[stdin]}, nil
		}
		return &executor.Result{Stdout: strPtr("wrong"), Time: times[stdin]}, nil
	})
	room := f.createRoom(t)

	res, err := f.submit(t, room.Code, "bob", "cpp")
	require.NoError(t, err)
	require.Equal(t, 1, res.Passed)
	require.InDelta(t, 2.5, res.TotalTime, 1e-9)
	require.Equal(t, "75.00", res.FormattedScore())
	require.Equal(t, 54, f.exec.Calls()[0].languageID)
}

func TestSubmitMatchingRules(t *testing.T) {
	f := newFixture(t, func(_, stdin string) (*executor.Result, error) {
		switch stdin {
		case "hello":
			return &executor.Result{Stdout: nil}, nil // no stdout never passes
		case "abc":
			return &executor.Result{Stdout: strPtr("CBA")}, nil // case sensitive
		default:
			return &executor.Result{Stdout: strPtr("\tdlrow\r\n")}, nil
		}
	})
	room := f.createRoom(t)

	res, err := f.submit(t, room.Code, "carol", "java")
	require.NoError(t, err)
	require.Equal(t, 1, res.Passed)
	require.Equal(t, []bool{false, false, true}, []bool{res.Verdicts[0].Passed, res.Verdicts[1].Passed, res.Verdicts[2].Passed})
	require.Equal(t, "100.00", res.FormattedScore())
}

func TestSubmitScoreTieRoundsUp(t *testing.T) {
	// only "hello" passes, in 0.0375s: 100 - 0.375 = 99.625
	f := newFixture(t, func(_, stdin string) (*executor.Result, error) {
		if stdin == "hello" {
			return &executor.Result{Stdout: strPtr("olleh"), Time: 0.0375}, nil
		}
		return &executor.Result{Stdout: strPtr("")}, nil
	})
	room := f.createRoom(t)

	res, err := f.submit(t, room.Code, "dave", "cpp")
	require.NoError(t, err)
	require.Equal(t, "99.63", res.FormattedScore())

	entries, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.LeaderboardEntry{{Username: "dave", Score: "99.63"}}, entries)
}

func TestSubmitMissingFields(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)

	valid := SubmitCodeRequest{RoomCode: room.Code, Username: "alice", Code: "print(input()[::-1])", Language: "python"}
	cases := map[string]func(r *SubmitCodeRequest){
		"username": func(r *SubmitCodeRequest) { r.Username = "" },
		"code":     func(r *SubmitCodeRequest) { r.Code = "  \n" },
		"language": func(r *SubmitCodeRequest) { r.Language = "" },
		"roomCode": func(r *SubmitCodeRequest) { r.RoomCode = " " },
	}
	for field, mutate := range cases {
		req := valid
		mutate(&req)
		_, err := f.svc.SubmitCode(context.Background(), req)
		require.ErrorIs(t, err, common.ErrBadRequest, field)
		require.Contains(t, err.Error(), field)
	}
	require.Empty(t, f.exec.Calls())

	entries, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestOutputMatchesTrimSet(t *testing.T) {
	require.True(t, OutputMatches(strPtr("\ufeffolleh\n"), "olleh"))
	require.True(t, OutputMatches(strPtr("\u00a0olleh\u2028"), "olleh"))
	require.True(t, OutputMatches(strPtr("\u3000olleh \t"), "olleh"))
	require.False(t, OutputMatches(strPtr("olleh\u0085"), "olleh"))
	require.False(t, OutputMatches(nil, ""))
	require.True(t, OutputMatches(strPtr(" \n"), ""))
}

func TestSubmitAfterDeadline(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)

	f.clock.Advance(121 * time.Second)
	_, err := f.submit(t, room.Code, "late", "python")
	require.ErrorIs(t, err, common.ErrContestOver)
	require.Empty(t, f.exec.Calls())

	entries, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSubmitAtDeadlineIsAccepted(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)

	f.clock.Advance(room.Duration)
	_, err := f.submit(t, room.Code, "justintime", "python")
	require.NoError(t, err)
}

func TestSubmitUnknownRoom(t *testing.T) {
	f := newFixture(t, reverser("null"))

	_, err := f.submit(t, "NOPE00", "alice", "python")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.Empty(t, f.exec.Calls())
}

func TestSubmitUnknownLanguage(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)

	_, err := f.submit(t, room.Code, "alice", "rust")
	require.ErrorIs(t, err, common.ErrUnknownLanguage)
	require.Empty(t, f.exec.Calls())
}

func TestSubmitExecutorFailureLeavesLeaderboard(t *testing.T) {
	boom := errors.New("connection reset")
	f := newFixture(t, func(_, stdin string) (*executor.Result, error) {
		if stdin == "abc" {
			return nil, boom
		}
		return &executor.Result{Stdout: strPtr(reverse(stdin))}, nil
	})
	room := f.createRoom(t)

	_, err := f.submit(t, room.Code, "alice", "python")
	require.ErrorIs(t, err, boom)

	entries, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestLastWriteWins(t *testing.T) {
	pass := true
	f := newFixture(t, func(_, stdin string) (*executor.Result, error) {
		if pass {
			return &executor.Result{Stdout: strPtr(reverse(stdin))}, nil
		}
		return &executor.Result{Stdout: strPtr("")}, nil
	})
	room := f.createRoom(t)

	_, err := f.submit(t, room.Code, "alice", "python")
	require.NoError(t, err)
	_, err = f.submit(t, room.Code, "bob", "python")
	require.NoError(t, err)
	pass = false
	_, err = f.submit(t, room.Code, "alice", "python")
	require.NoError(t, err)

	entries, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.LeaderboardEntry{
		{Username: "alice", Score: "0.00"},
		{Username: "bob", Score: "300.00"},
	}, entries)
}

func TestSequentialByDefault(t *testing.T) {
	f := newFixture(t, reverser("null"))
	f.exec.delay = 5 * time.Millisecond
	room := f.createRoom(t)

	_, err := f.submit(t, room.Code, "alice", "python")
	require.NoError(t, err)
	require.EqualValues(t, 1, f.exec.peak.Load())
}

func TestBoundedConcurrencyKeepsOrder(t *testing.T) {
	f := newFixture(t, reverser(`"0.1"`), WithConcurrency(2))
	f.exec.delay = 20 * time.Millisecond
	room := f.createRoom(t)

	res, err := f.submit(t, room.Code, "alice", "python")
	require.NoError(t, err)
	require.LessOrEqual(t, f.exec.peak.Load(), int32(2))
	require.Equal(t, "297.00", res.FormattedScore())
	for i, v := range res.Verdicts {
		require.Equal(t, i, v.Index)
		require.True(t, v.Passed)
	}
}

func TestScoreFormula(t *testing.T) {
	require.Equal(t, 300.0, ComputeScore(3, 0))
	require.Equal(t, 75.0, ComputeScore(1, 2.5))
	require.Equal(t, -5.0, ComputeScore(0, 0.5))

	passed, total := Tally([]model.TestVerdict{
		{Passed: true, Time: 0.25},
		{Passed: false, Time: 0.5},
		{Passed: true, Time: 0},
	})
	require.Equal(t, 2, passed)
	require.InDelta(t, 0.75, total, 1e-9)
}

func TestTestCasesPerRoom(t *testing.T) {
	f := newFixture(t, reverser("null"))
	room := f.createRoom(t)
	require.Equal(t, len(room.AllTestCases()), TestCasesPerRoom())
}

func TestRandomRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		code := RandomRoomCode()
		require.Len(t, code, roomCodeLength)
		require.Equal(t, strings.Trim(code, roomCodeAlphabet), "")
		seen[code] = true
	}
	require.Greater(t, len(seen), 90)
}
