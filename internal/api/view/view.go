// Package view renders the HTML fragments returned by every endpoint.
package view

import (
	"bytes"
	"contest_room/internal/app/service"
	"contest_room/internal/domain/model"
	"html/template"
	"strconv"
	"time"
)

const pages = `
{{define "home"}}<h2>Server running 🚀</h2>{{end}}

{{define "room_created"}}
<h2>Room Created 🎉</h2>
<p>Room Code: {{.Code}}</p>
<p>Contest Time: {{.Length}}</p>
<a href="/join-room?code={{.Code}}">Join Room</a>
{{end}}

{{define "join"}}
<article id="{{.QuestionSlug}}">
<h2>Question</h2>
<p>{{.Question}}</p>
{{range .PublicTestCases}}<pre>Input: {{.Input}}
Output: {{.Output}}</pre>
{{end}}<p>⏳ Time Left: {{.SecondsLeft}} seconds</p>

<form method="POST" action="/submit-code">
  <input type="hidden" name="roomCode" value="{{.Code}}">
  <input name="username" required><br><br>

  <select name="language">
{{range .Languages}}    <option value="{{.Key}}">{{.Name}}</option>
{{end}}  </select><br><br>

  <textarea name="code" rows="12" cols="80" required></textarea><br><br>
  <button>Submit</button>
</form>
</article>
{{end}}

{{define "submitted"}}
<h2>Submitted Successfully ✅</h2>
<p>Passed: {{.Passed}} / {{.Total}}</p>
<p>Score: {{.FormattedScore}}</p>
<a href="/leaderboard">Leaderboard</a>
{{end}}

{{define "contest_over"}}<h2>⏰ Contest Over</h2>{{end}}

{{define "room_not_found"}}<h2>Room not found ❌</h2>{{end}}

{{define "leaderboard"}}<h2>🏆 Leaderboard</h2>
{{range .}}<p>{{.Username}} : {{.Score}}</p>
{{end}}{{end}}

{{define "error"}}<h2>{{.}}</h2>{{end}}
`

var templates = template.Must(template.New("pages").Parse(pages))

func render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func Home() ([]byte, error) {
	return render("home", nil)
}

func RoomCreated(room *model.Room) ([]byte, error) {
	return render("room_created", struct {
		Code   string
		Length string
	}{
		Code:   room.Code,
		Length: contestLength(room.Duration),
	})
}

// contestLength shows whole minutes, falling back to seconds for anything else.
func contestLength(d time.Duration) string {
	if d >= time.Minute && d%time.Minute == 0 {
		return plural(int64(d/time.Minute), "minute")
	}
	return plural(int64(d.Round(time.Second)/time.Second), "second")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.FormatInt(n, 10) + " " + unit + "s"
}

func Join(details *service.RoomDetails) ([]byte, error) {
	return render("join", details)
}

func Submitted(result *model.SubmissionResult) ([]byte, error) {
	return render("submitted", result)
}

func ContestOver() ([]byte, error) {
	return render("contest_over", nil)
}

func RoomNotFound() ([]byte, error) {
	return render("room_not_found", nil)
}

func Leaderboard(entries []model.LeaderboardEntry) ([]byte, error) {
	return render("leaderboard", entries)
}

func Error(message string) ([]byte, error) {
	return render("error", message)
}
