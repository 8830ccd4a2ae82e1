package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/classboard/notify-worker/internal/domain"
)

// sendRequest is the JSON body posted to the provider's send endpoint.
type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// HTTPMailer delivers notification emails through an external HTTP email
// provider (Resend-compatible API). The endpoint is injected from config so
// tests can point to a local httptest server.
//
// In dry-run mode no network call is made and every send succeeds with a
// synthetic provider id — the safe default for untested environments.
type HTTPMailer struct {
	endpoint   string
	apiKey     string
	from       string
	appBaseURL string
	dryRun     bool
	httpClient *http.Client
}

func NewHTTPMailer(endpoint, apiKey, from, appBaseURL string, dryRun bool, timeout time.Duration) *HTTPMailer {
	return &HTTPMailer{
		endpoint:   endpoint,
		apiKey:     apiKey,
		from:       from,
		appBaseURL: appBaseURL,
		dryRun:     dryRun,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send builds the email payload and posts it to the provider.
// All outcomes, including transport and parse failures, resolve to Outcome.
func (m *HTTPMailer) Send(ctx context.Context, item *domain.QueueItem) Outcome {
	if m.dryRun {
		return Outcome{OK: true, ProviderMsgID: "dry-run-" + item.ID}
	}

	// Fail fast on misconfiguration instead of burning a provider call.
	if m.apiKey == "" {
		return Outcome{Err: "email provider API key is not configured"}
	}
	if m.from == "" {
		return Outcome{Err: "email from-address is not configured"}
	}

	subject, html, err := BuildEmail(item, m.appBaseURL)
	if err != nil {
		return Outcome{Err: fmt.Sprintf("render email body: %v", err)}
	}

	body, err := json.Marshal(sendRequest{
		From:    m.from,
		To:      []string{item.RecipientEmail},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return Outcome{Err: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return Outcome{Err: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Outcome{Err: fmt.Sprintf("send request: %v", err)}
	}
	defer resp.Body.Close()

	// Cap the error body read; provider responses are small.
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Outcome{Err: parseProviderError(resp.StatusCode, respBody)}
	}

	var sendResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &sendResp); err == nil && sendResp.ID != "" {
		return Outcome{OK: true, ProviderMsgID: sendResp.ID}
	}
	// Accepted but no id in the body: synthesize one from the item id so
	// the sent row still carries a correlation value.
	return Outcome{OK: true, ProviderMsgID: "sent-" + item.ID}
}

// parseProviderError extracts a human-readable message from a non-2xx
// response body, probing known field names in a fixed priority order and
// falling back to a status-derived message when the body is unparseable or
// lacks both fields.
func parseProviderError(status int, body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	return fmt.Sprintf("email provider returned HTTP %d", status)
}

// compile-time check that HTTPMailer implements Mailer
var _ Mailer = (*HTTPMailer)(nil)
