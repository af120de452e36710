package runs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/de-tools/site-warden/pkg/models/api"
	"github.com/de-tools/site-warden/pkg/models/domain"
	"github.com/de-tools/site-warden/pkg/store/auditlog"
	"github.com/de-tools/site-warden/pkg/store/history"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHistoryStore struct {
	mock.Mock
}

func (m *mockHistoryStore) Add(ctx context.Context, summary domain.RunSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

func (m *mockHistoryStore) Get(ctx context.Context, runID string) (*domain.RunSummary, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunSummary), args.Error(1)
}

func (m *mockHistoryStore) List(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RunSummary), args.Error(1)
}

func withRunID(req *http.Request, runID string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("run_id", runID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func TestListRuns(t *testing.T) {
	startedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	summaries := []domain.RunSummary{
		{RunID: "run-2", StartedAt: startedAt.Add(time.Hour), Status: domain.RunSucceeded, LogOnly: true},
		{RunID: "run-1", StartedAt: startedAt, Status: domain.RunPartial, LogOnly: true},
	}

	tests := []struct {
		name          string
		url           string
		expectedLimit int
	}{
		{"default limit", "/api/v1/runs", 20},
		{"explicit limit", "/api/v1/runs?limit=5", 5},
		{"invalid limit falls back", "/api/v1/runs?limit=abc", 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(mockHistoryStore)
			store.On("List", mock.Anything, tt.expectedLimit).Return(summaries, nil)

			handler := NewHandler(store, t.TempDir())
			req := httptest.NewRequest("GET", tt.url, nil)
			rec := httptest.NewRecorder()

			handler.ListRuns(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			var response []api.RunSummary
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
			require.Len(t, response, 2)
			assert.Equal(t, "run-2", response[0].RunID)
			assert.Equal(t, "succeeded", response[0].Status)

			store.AssertExpectations(t)
		})
	}
}

func TestGetRun(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		store := new(mockHistoryStore)
		store.On("Get", mock.Anything, "run-1").Return(
			&domain.RunSummary{RunID: "run-1", Status: domain.RunSucceeded}, nil)

		handler := NewHandler(store, t.TempDir())
		req := withRunID(httptest.NewRequest("GET", "/api/v1/runs/run-1", nil), "run-1")
		rec := httptest.NewRecorder()

		handler.GetRun(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var response domain.RunSummary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "run-1", response.RunID)
		store.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		store := new(mockHistoryStore)
		store.On("Get", mock.Anything, "missing").Return(nil, history.ErrRunNotFound)

		handler := NewHandler(store, t.TempDir())
		req := withRunID(httptest.NewRequest("GET", "/api/v1/runs/missing", nil), "missing")
		rec := httptest.NewRecorder()

		handler.GetRun(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		store.AssertExpectations(t)
	})
}

func TestGetRunDigest(t *testing.T) {
	logDir := t.TempDir()
	ts := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	writer, err := auditlog.NewWriter(auditlog.Options{Dir: logDir})
	require.NoError(t, err)
	require.NoError(t, writer.Emit(domain.LogEntry{
		RunID: "run-1", Timestamp: ts, Severity: domain.SeverityWarning,
		Event: domain.EventFlaggedRecord, Resource: domain.ResourceUsers, Site: "alpha",
	}))
	require.NoError(t, writer.Emit(domain.LogEntry{
		RunID: "run-1", Timestamp: ts.Add(time.Minute), Severity: domain.SeverityInfo,
		Event: domain.EventRunSummary,
		Payload: map[string]any{
			"status": "succeeded", "log_only": true, "sites_scanned": 2,
			"record_count": 40, "stale_count": 1, "warning_count": 0, "error_count": 0,
		},
	}))
	require.NoError(t, writer.Close())

	handler := NewHandler(new(mockHistoryStore), logDir)

	t.Run("found", func(t *testing.T) {
		req := withRunID(httptest.NewRequest("GET", "/api/v1/runs/run-1/digest", nil), "run-1")
		rec := httptest.NewRecorder()

		handler.GetRunDigest(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var response api.RunDigest
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "run-1", response.RunID)
		assert.Equal(t, "succeeded", response.Status)
		assert.Equal(t, 2, response.SitesScanned)
		assert.Equal(t, 1, response.FlaggedCount)
		require.Len(t, response.Resources, 1)
		assert.Equal(t, "users", response.Resources[0].Resource)
		assert.Equal(t, map[string]int{"alpha": 1}, response.Resources[0].FlaggedBySite)
	})

	t.Run("unknown run", func(t *testing.T) {
		req := withRunID(httptest.NewRequest("GET", "/api/v1/runs/nope/digest", nil), "nope")
		rec := httptest.NewRecorder()

		handler.GetRunDigest(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
