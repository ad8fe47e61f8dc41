package executor

import (
	"bytes"
	"contest_room/internal/common"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorBody bounds how much of a failed response is kept for the error message.
const maxErrorBody = 512

// Request is the body accepted by a Judge0-compatible /submissions endpoint.
type Request struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
	Stdin      string `json:"stdin"`
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Result is the subset of the executor response the contest uses.
type Result struct {
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr,omitempty"`
	CompileOutput *string `json:"compile_output,omitempty"`
	Message       *string `json:"message,omitempty"`
	Time          Seconds `json:"time"`
	Memory        *int    `json:"memory,omitempty"`
	Status        *Status `json:"status,omitempty"`
}

// Seconds decodes the executor's time field, which may be a JSON string, a number or null.
// Absent and null values decode to zero.
type Seconds float64

func (s *Seconds) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		*s = 0
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	if raw == "" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid execution time %s: %w", data, err)
	}
	*s = Seconds(v)
	return nil
}

// Executor runs one program against one input and waits for the result.
type Executor interface {
	Execute(ctx context.Context, sourceCode, stdin string, languageID int) (*Result, error)
}

type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient targets url, which must already request synchronous execution (wait=true).
// A zero timeout leaves the call bounded only by ctx.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Execute sends a single run. Transport failures, non-2xx responses and undecodable bodies
// are returned wrapped in common.ErrServiceUnavailable; there are no retries.
func (c *Client) Execute(ctx context.Context, sourceCode, stdin string, languageID int) (*Result, error) {
	body, err := json.Marshal(Request{LanguageID: languageID, SourceCode: sourceCode, Stdin: stdin})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create execution request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execution request failed: %v: %w", err, common.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("executor returned status %d: %s: %w",
			resp.StatusCode, strings.TrimSpace(string(snippet)), common.ErrServiceUnavailable)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("malformed executor response: %v: %w", err, common.ErrServiceUnavailable)
	}

	if result.Status != nil {
		c.logger.Debug("execution finished",
			"language_id", languageID,
			"status", result.Status.Description,
			"time", float64(result.Time))
	}
	return &result, nil
}
