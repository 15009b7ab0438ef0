// Package examclient is the Go client of the exam API, used by exam-taking
// frontends to drive the integrity monitor and the countdown.
package examclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/examguard/client/countdown"
	"github.com/trezcool/examguard/client/monitor"
	"github.com/trezcool/examguard/core/exam"
	"github.com/trezcool/examguard/core/violation"
)

// APIError is a non-2xx answer of the API.
type APIError struct {
	Status  int
	Message string
	// Fields holds per-field messages of validation errors.
	Fields map[string]string
}

func (e *APIError) Error() string {
	if e.Message == "" && len(e.Fields) > 0 {
		return fmt.Sprintf("exam api: %d: invalid fields %v", e.Status, e.Fields)
	}
	return fmt.Sprintf("exam api: %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status of an *APIError cause, or 0.
func StatusOf(err error) int {
	if apiErr, ok := errors.Cause(err).(*APIError); ok {
		return apiErr.Status
	}
	return 0
}

type Options struct {
	HTTPClient *http.Client
	// Timeout applies when HTTPClient is nil. Defaults to 15s.
	Timeout time.Duration
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ monitor.Reporter = (*Client)(nil) // interface compliance check

func New(baseURL, token string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

func (c *Client) StartAttempt(ctx context.Context, examID string) (exam.AttemptSnapshot, error) {
	var snap exam.AttemptSnapshot
	err := c.do(ctx, http.MethodPost, "/v1/exams/"+url.PathEscape(examID)+"/attempts", nil, &snap)
	return snap, err
}

func (c *Client) GetAttempt(ctx context.Context, attemptID string) (exam.AttemptSnapshot, error) {
	var snap exam.AttemptSnapshot
	err := c.do(ctx, http.MethodGet, attemptPath(attemptID, ""), nil, &snap)
	return snap, err
}

func (c *Client) GetStudentExam(ctx context.Context, attemptID string) (exam.StudentExam, error) {
	var ex exam.StudentExam
	err := c.do(ctx, http.MethodGet, attemptPath(attemptID, "/exam"), nil, &ex)
	return ex, err
}

func (c *Client) RecordViolation(ctx context.Context, attemptID string, kind violation.Kind, detail json.RawMessage) (exam.ViolationResult, error) {
	var res exam.ViolationResult
	body := map[string]interface{}{"kind": kind}
	if len(detail) > 0 {
		body["detail"] = detail
	}
	err := c.do(ctx, http.MethodPost, attemptPath(attemptID, "/violations"), body, &res)
	return res, err
}

func (c *Client) SubmitAttempt(ctx context.Context, attemptID string, answers []exam.AnswerInput, reason exam.EndReason) (exam.SubmitResult, error) {
	var res exam.SubmitResult
	if answers == nil {
		answers = []exam.AnswerInput{}
	}
	body := map[string]interface{}{"answers": answers, "reason": reason}
	err := c.do(ctx, http.MethodPost, attemptPath(attemptID, "/submit"), body, &res)
	return res, err
}

// SubmitFunc adapts SubmitAttempt to the countdown, reading the answers at submission time.
// A submission the server did not accept (attempt already final) is not an error:
// there is nothing left to retry. Client errors other than 408 and 429 are marked
// countdown.Permanent so the timer stops resending them.
func (c *Client) SubmitFunc(attemptID string, answers func() []exam.AnswerInput) countdown.SubmitFunc {
	return func(ctx context.Context, reason exam.EndReason) error {
		var inputs []exam.AnswerInput
		if answers != nil {
			inputs = answers()
		}
		_, err := c.SubmitAttempt(ctx, attemptID, inputs, reason)
		if isPermanentStatus(StatusOf(err)) {
			return countdown.Permanent(err)
		}
		return err
	}
}

func isPermanentStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}

func (c *Client) GetAttemptReport(ctx context.Context, attemptID string) (exam.AttemptReport, error) {
	var rep exam.AttemptReport
	err := c.do(ctx, http.MethodGet, attemptPath(attemptID, "/report"), nil, &rep)
	return rep, err
}

// Overview fetches the proctor overview; ordering fields are '-' prefixed for descending order.
func (c *Client) Overview(ctx context.Context, examID string, ordering ...string) (exam.Overview, error) {
	path := "/v1/exams/" + url.PathEscape(examID) + "/overview"
	if len(ordering) > 0 {
		path += "?" + url.Values{"ordering": {strings.Join(ordering, ",")}}.Encode()
	}
	var ov exam.Overview
	err := c.do(ctx, http.MethodGet, path, nil, &ov)
	return ov, err
}

func attemptPath(attemptID, suffix string) string {
	return "/v1/attempts/" + url.PathEscape(attemptID) + suffix
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "reading response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, out), "decoding response")
}

// newAPIError decodes either {"error": msg} or a {field: msg} validation map.
func newAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{Status: status}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}
	if msg, ok := fields["error"].(string); ok {
		apiErr.Message = msg
		return apiErr
	}
	apiErr.Fields = make(map[string]string, len(fields))
	for k, v := range fields {
		apiErr.Fields[k] = fmt.Sprint(v)
	}
	return apiErr
}
