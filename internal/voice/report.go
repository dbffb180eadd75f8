package voice

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

	"medical-voice-agent/internal/core"
	"medical-voice-agent/internal/logging"
	"medical-voice-agent/pkg"
)

// DefaultReportTimeout bounds a report request end to end.
const DefaultReportTimeout = 30 * time.Second

// APIError is returned for a non-2xx answer from the API server.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api: status %d", e.Status)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

// APIClient talks to the API server on behalf of the session page: it
// fetches session metadata and requests reports.
type APIClient struct {
	BaseURL string
	// HTTP is used to fetch sessions.
	HTTP *http.Client
	// ReportTimeout bounds GenerateReport; DefaultReportTimeout when zero.
	ReportTimeout time.Duration
}

// NewAPIClient constructs a client for the server at baseURL.
func NewAPIClient(baseURL string, reportTimeout time.Duration) *APIClient {
	if reportTimeout <= 0 {
		reportTimeout = DefaultReportTimeout
	}
	return &APIClient{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTP:          &http.Client{Timeout: 15 * time.Second},
		ReportTimeout: reportTimeout,
	}
}

// FetchSession loads the metadata of one session.  There is no retry.
func (c *APIClient) FetchSession(ctx context.Context, sessionID string) (*pkg.SessionDetail, error) {
	u := c.BaseURL + "/api/session-chat?sessionId=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	var detail pkg.SessionDetail
	if err := c.do(c.HTTP, req, &detail); err != nil {
		return nil, fmt.Errorf("fetch session: %w", err)
	}
	return &detail, nil
}

// GenerateReport posts the conversation to the report endpoint and
// returns the stored report.  An empty conversation is rejected locally.
// Transport failures, timeouts, non-2xx answers and malformed replies are
// returned to the caller; nothing is retried.
func (c *APIClient) GenerateReport(ctx context.Context, messages []pkg.Utterance, detail *pkg.SessionDetail, sessionID string) (*pkg.Report, error) {
	if len(messages) == 0 {
		return nil, ErrEmptyConversation
	}
	body, err := json.Marshal(pkg.ReportRequest{Messages: messages, SessionDetail: detail, SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("encode report request: %w", err)
	}
	timeout := c.ReportTimeout
	if timeout <= 0 {
		timeout = DefaultReportTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/medical-report", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var report pkg.Report
	start := time.Now()
	if err := c.do(&http.Client{Transport: c.transport()}, req, &report); err != nil {
		logging.Warnw("report: request failed", append(logging.SessionFields(sessionID), "err", err, "elapsed_ms", time.Since(start).Milliseconds())...)
		return nil, fmt.Errorf("medical report: %w", err)
	}
	core.FillReportDefaults(&report, sessionID, detail, time.Now())
	logging.Infow("report: received", append(logging.SessionFields(sessionID), "elapsed_ms", time.Since(start).Milliseconds())...)
	return &report, nil
}

func (c *APIClient) transport() http.RoundTripper {
	if c.HTTP != nil && c.HTTP.Transport != nil {
		return c.HTTP.Transport
	}
	return http.DefaultTransport
}

func (c *APIClient) do(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body pkg.ErrorResponse
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Error
			apiErr.Details = body.Details
		}
		return apiErr
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
