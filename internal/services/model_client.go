package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"vitalsense/internal/models"
)

// TextGenerator is the contract the insight engine imposes on the generative
// model: one prompt in, free-form text out. Implementations may fail for
// quota, content-safety, auth, or transport reasons; the engine converts any
// failure into its deterministic fallback.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelError is a classified failure from the model client
type ModelError struct {
	Reason  models.FailureReason
	Status  int
	Message string
}

func (e *ModelError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("model call failed (%s, status %d): %s", e.Reason, e.Status, e.Message)
	}
	return fmt.Sprintf("model call failed (%s): %s", e.Reason, e.Message)
}

// ClassifyFailure extracts the failure reason from a model client error.
// Unclassified errors count as transient.
func ClassifyFailure(err error) models.FailureReason {
	var modelErr *ModelError
	if errors.As(err, &modelErr) {
		return modelErr.Reason
	}
	return models.FailureTransient
}

// ModelClientConfig configures the OpenAI-compatible model client
type ModelClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	RateRPS float64
}

// ModelClient calls an OpenAI-compatible chat completions endpoint
type ModelClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewModelClient creates a model client. A missing base URL or API key is
// allowed at construction time; Generate reports it as a config error.
func NewModelClient(cfg ModelClientConfig) *ModelClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 2.0
	}

	return &ModelClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		// Burst of 2x the sustained rate so a dashboard load (score + nudges)
		// doesn't queue behind itself
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps*2)+1),
	}
}

// IsConfigured reports whether the provider credentials are present
func (c *ModelClient) IsConfigured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// Generate sends a single prompt and returns the raw completion text
func (c *ModelClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.baseURL == "" || c.apiKey == "" {
		return "", &ModelError{
			Reason:  models.FailureConfigError,
			Message: "model provider not configured (MODEL_BASE_URL / MODEL_API_KEY)",
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &ModelError{Reason: models.FailureTransient, Message: fmt.Sprintf("rate limiter wait: %v", err)}
	}

	requestBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]interface{}{
			{"role": "user", "content": prompt},
		},
		"stream":      false,
		"temperature": 0.3, // Lower temperature for more consistent JSON output
		"response_format": map[string]interface{}{
			"type": "json_object",
		},
	}

	reqBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", &ModelError{Reason: models.FailureTransient, Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", &ModelError{Reason: models.FailureConfigError, Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if metrics := GetMetrics(); metrics != nil {
		metrics.RecordModelLatency(time.Since(start).Seconds())
	}
	if err != nil {
		return "", &ModelError{Reason: models.FailureTransient, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ModelError{Reason: models.FailureTransient, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		reason := classifyStatus(resp.StatusCode, string(body))
		log.Printf("⚠️ [MODEL] API error (status %d, %s): %s", resp.StatusCode, reason, truncate(string(body), 300))
		return "", &ModelError{Reason: reason, Status: resp.StatusCode, Message: truncate(string(body), 300)}
	}

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", &ModelError{Reason: models.FailureTransient, Message: fmt.Sprintf("failed to parse API response: %v", err)}
	}

	if len(apiResponse.Choices) == 0 {
		return "", &ModelError{Reason: models.FailureTransient, Message: "no response from model"}
	}

	return apiResponse.Choices[0].Message.Content, nil
}

// classifyStatus maps an HTTP failure onto a failure reason
func classifyStatus(statusCode int, responseBody string) models.FailureReason {
	if statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		return models.FailureConfigError
	}
	if isQuotaError(statusCode, responseBody) {
		return models.FailureQuotaExceeded
	}
	if isContentBlocked(responseBody) {
		return models.FailureContentBlocked
	}
	return models.FailureTransient
}

// isQuotaError detects if an error is related to quota exhaustion or rate limiting
func isQuotaError(statusCode int, responseBody string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}

	lowerBody := strings.ToLower(responseBody)
	quotaPatterns := []string{
		"quota exceeded",
		"rate limit",
		"too many requests",
		"tokens per minute",
		"requests per minute",
		"daily limit",
		"insufficient_quota",
		"billing",
		"rate_limit_exceeded",
		"quota_exceeded",
	}

	for _, pattern := range quotaPatterns {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}

	return false
}

// isContentBlocked detects content-safety rejections
func isContentBlocked(responseBody string) bool {
	lowerBody := strings.ToLower(responseBody)
	blockedPatterns := []string{
		"content_filter",
		"content filter",
		"content policy",
		"safety system",
		"flagged",
	}

	for _, pattern := range blockedPatterns {
		if strings.Contains(lowerBody, pattern) {
			return true
		}
	}

	return false
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
