package voice

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"medical-voice-agent/pkg"
)

var sampleMessages = []pkg.Utterance{
	{Role: pkg.RoleUser, Text: "I have a headache"},
	{Role: pkg.RoleAssistant, Text: "How long?"},
}

func TestGenerateReportPostsConversation(t *testing.T) {
	var got pkg.ReportRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/medical-report" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sessionId":"s1","chiefComplaint":"Headache","summary":"Two days of headache."}`))
	}))
	defer srv.Close()

	detail := &pkg.SessionDetail{SessionID: "s1", SelectedDoctor: pkg.Doctor{Specialist: "General Physician"}}
	c := NewAPIClient(srv.URL+"/", time.Second)
	report, err := c.GenerateReport(context.Background(), sampleMessages, detail, "s1")
	if err != nil {
		t.Fatalf("GenerateReport: %v", err)
	}
	if got.SessionID != "s1" || len(got.Messages) != 2 || got.SessionDetail == nil {
		t.Fatalf("request body: %+v", got)
	}
	if report.ChiefComplaint != "Headache" {
		t.Fatalf("report: %+v", report)
	}
	if report.Agent != "General Physician AI" || report.Duration != "Not specified" || report.Symptoms == nil {
		t.Fatalf("defaults not applied: %+v", report)
	}
}

func TestGenerateReportEmptyConversation(t *testing.T) {
	c := NewAPIClient("http://127.0.0.1:1", time.Second)
	if _, err := c.GenerateReport(context.Background(), nil, nil, "s1"); !errors.Is(err, ErrEmptyConversation) {
		t.Fatalf("want ErrEmptyConversation, got %v", err)
	}
}

func TestGenerateReportAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to generate medical report","details":"model down"}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	_, err := c.GenerateReport(context.Background(), sampleMessages, nil, "s1")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want APIError, got %v", err)
	}
	if apiErr.Status != 500 || apiErr.Message != "Failed to generate medical report" || apiErr.Details != "model down" {
		t.Fatalf("api error: %+v", apiErr)
	}
}

func TestGenerateReportTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewAPIClient(srv.URL, 50*time.Millisecond)
	_, err := c.GenerateReport(context.Background(), sampleMessages, nil, "s1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestGenerateReportMalformedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, time.Second)
	_, err := c.GenerateReport(context.Background(), sampleMessages, nil, "s1")
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("want decode error, got %v", err)
	}
}

func TestFetchSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/session-chat" {
			t.Errorf("path %s", r.URL.Path)
		}
		if id := r.URL.Query().Get("sessionId"); id != "abc 1" {
			t.Errorf("sessionId %q", id)
		}
		_, _ = w.Write([]byte(`{"sessionId":"abc 1","notes":"headache","selectedDoctor":{"id":1,"specialist":"General Physician","voiceId":"will"}}`))
	}))
	defer srv.Close()

	c := NewAPIClient(srv.URL, 0)
	if c.ReportTimeout != DefaultReportTimeout {
		t.Fatalf("default timeout: %v", c.ReportTimeout)
	}
	detail, err := c.FetchSession(context.Background(), "abc 1")
	if err != nil {
		t.Fatalf("FetchSession: %v", err)
	}
	if detail.Notes != "headache" || detail.SelectedDoctor.VoiceID != "will" {
		t.Fatalf("detail: %+v", detail)
	}
}

func TestFetchSessionNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Session not found"}`))
	}))
	defer srv.Close()

	_, err := NewAPIClient(srv.URL, 0).FetchSession(context.Background(), "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("want 404 APIError, got %v", err)
	}
}
