package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/classboard/notify-worker/internal/api"
	"github.com/classboard/notify-worker/internal/dispatcher"
	"github.com/classboard/notify-worker/internal/domain"
	"github.com/classboard/notify-worker/internal/featuregate"
	"github.com/classboard/notify-worker/internal/mailer"
	"github.com/classboard/notify-worker/internal/repository"
	"github.com/classboard/notify-worker/internal/service"
)

// okMailer accepts every send with a synthetic id.
type okMailer struct{}

func (okMailer) Send(_ context.Context, item *domain.QueueItem) mailer.Outcome {
	return mailer.Outcome{OK: true, ProviderMsgID: "dry-run-" + item.ID}
}

func newTestRouter(t *testing.T, secret string, flagEnabled bool) (http.Handler, *repository.MockQueueRepository) {
	t.Helper()

	repo := repository.NewMockQueueRepository()
	flags := repository.NewMockFlagRepository()
	flags.Flags["email_notifications_enabled"] = flagEnabled

	gate := featuregate.New(flags, "email_notifications_enabled", zap.NewNop())
	d := dispatcher.New(repo, gate, okMailer{}, nil, 20, true, zap.NewNop(), dispatcher.MetricHooks{})
	svc := service.NewQueueService(repo, zap.NewNop())

	router := api.NewRouter(d, svc, nil, prometheus.NewRegistry(), secret, zap.NewNop())
	return router, repo
}

func TestDispatchEndpoint(t *testing.T) {
	router, repo := newTestRouter(t, "", true)
	repo.Put(&domain.QueueItem{
		ID:             "a",
		RecipientEmail: "parent@example.com",
		Status:         domain.StatusPending,
		CreatedAt:      time.Now(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Message   string `json:"message"`
		Processed int    `json:"processed"`
		Sent      int    `json:"sent"`
		Failed    int    `json:"failed"`
		DryRun    bool   `json:"dry_run"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.Processed != 1 || body.Sent != 1 || body.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", body)
	}
	if !body.DryRun {
		t.Fatal("expected dry_run=true")
	}
}

func TestDispatchEndpoint_GateClosed(t *testing.T) {
	router, repo := newTestRouter(t, "", false)
	repo.Put(&domain.QueueItem{
		ID:             "a",
		RecipientEmail: "parent@example.com",
		Status:         domain.StatusPending,
		CreatedAt:      time.Now(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on gate-closed run, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "disabled") {
		t.Fatalf("expected disabled message, got %s", rec.Body.String())
	}

	item, _ := repo.GetByID(context.Background(), "a")
	if item.Status != domain.StatusPending || item.Attempts != 0 {
		t.Fatal("expected queue untouched when gate is closed")
	}
}

func TestDispatchEndpoint_Auth(t *testing.T) {
	router, _ := newTestRouter(t, "s3cret", true)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"correct token", "Bearer s3cret", http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/dispatch", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestDispatchEndpoint_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, "", true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dispatch", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET on the trigger, got %d", rec.Code)
	}
}

func TestDispatchEndpoint_Preflight(t *testing.T) {
	// Preflight must succeed without auth even when a secret is configured.
	router, _ := newTestRouter(t, "s3cret", true)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/v1/dispatch", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for OPTIONS preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("expected permissive CORS headers on preflight")
	}
}

func TestCancelEndpoint(t *testing.T) {
	router, repo := newTestRouter(t, "", true)
	repo.Put(&domain.QueueItem{
		ID:             "a",
		RecipientEmail: "leaver@example.com",
		Status:         domain.StatusPending,
		CreatedAt:      time.Now(),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/cancel",
		strings.NewReader(`{"recipient_email":"leaver@example.com"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"cancelled":1`) {
		t.Fatalf("expected cancelled count 1, got %s", rec.Body.String())
	}
}

func TestCancelEndpoint_Validation(t *testing.T) {
	router, _ := newTestRouter(t, "", true)

	t.Run("invalid JSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/cancel", strings.NewReader("not json"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("empty recipient", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/queue/cancel", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestQueueInspectionEndpoints(t *testing.T) {
	router, repo := newTestRouter(t, "", true)
	repo.Put(&domain.QueueItem{
		ID:             "a",
		RecipientEmail: "parent@example.com",
		Status:         domain.StatusPending,
		CreatedAt:      time.Now(),
	})

	t.Run("stats", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/stats", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"total":1`) {
			t.Fatalf("expected total=1, got %s", rec.Body.String())
		}
	})

	t.Run("get by id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/a", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("get missing id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/queue/nope", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
