package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"vitalsense/internal/models"
)

func newTestClient(baseURL string) *ModelClient {
	return NewModelClient(ModelClientConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Model:   "test-model",
		RateRPS: 100, // don't throttle tests
	})
}

func TestGenerateUnconfiguredClient(t *testing.T) {
	client := NewModelClient(ModelClientConfig{})

	_, err := client.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error from unconfigured client")
	}
	if reason := ClassifyFailure(err); reason != models.FailureConfigError {
		t.Errorf("reason = %q, want %q", reason, models.FailureConfigError)
	}
	if client.IsConfigured() {
		t.Error("IsConfigured() = true for empty config")
	}
}

func TestGenerateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"score\": 80}"}}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.Generate(context.Background(), "analyze")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != `{"score": 80}` {
		t.Errorf("Generate() = %q", text)
	}
}

func TestGenerateFailureClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason models.FailureReason
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":"invalid api key"}`, models.FailureConfigError},
		{"forbidden", http.StatusForbidden, `{"error":"forbidden"}`, models.FailureConfigError},
		{"rate limited", http.StatusTooManyRequests, `{"error":"slow down"}`, models.FailureQuotaExceeded},
		{"quota in body", http.StatusBadRequest, `{"error":{"code":"insufficient_quota"}}`, models.FailureQuotaExceeded},
		{"content filter", http.StatusBadRequest, `{"error":{"code":"content_filter"}}`, models.FailureContentBlocked},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, models.FailureTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.Generate(context.Background(), "analyze")
			if err == nil {
				t.Fatal("expected error")
			}
			if reason := ClassifyFailure(err); reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", reason, tt.wantReason)
			}
		})
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Generate(context.Background(), "analyze")
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
	if reason := ClassifyFailure(err); reason != models.FailureTransient {
		t.Errorf("reason = %q, want %q", reason, models.FailureTransient)
	}
}

func TestClassifyFailureUnknownError(t *testing.T) {
	if reason := ClassifyFailure(errors.New("dial tcp: connection refused")); reason != models.FailureTransient {
		t.Errorf("reason = %q, want %q", reason, models.FailureTransient)
	}
}
