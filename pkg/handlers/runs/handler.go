package runs

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/de-tools/site-warden/pkg/models/api"
	"github.com/de-tools/site-warden/pkg/services/report"
	"github.com/de-tools/site-warden/pkg/store/auditlog"
	"github.com/de-tools/site-warden/pkg/store/history"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const defaultListLimit = 20

// Handler exposes finished runs: the history ledger for summaries and the
// audit log directory for per-run digests. Read-only by design.
type Handler struct {
	store  history.Store
	logDir string
}

func NewHandler(store history.Store, logDir string) *Handler {
	return &Handler{
		store:  store,
		logDir: logDir,
	}
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	summaries, err := h.store.List(ctx, limit)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list runs")
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}

	response := make([]api.RunSummary, 0, len(summaries))
	for _, s := range summaries {
		response = append(response, api.RunSummary{
			RunID:        s.RunID,
			StartedAt:    s.StartedAt,
			FinishedAt:   s.FinishedAt,
			SitesScanned: s.SitesScanned,
			PairsScanned: s.PairsScanned,
			PairsFailed:  s.PairsFailed,
			RecordCount:  s.RecordCount,
			StaleCount:   s.StaleCount,
			WarningCount: s.WarningCount,
			ErrorCount:   s.ErrorCount,
			LogOnly:      s.LogOnly,
			Status:       string(s.Status),
		})
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Msg("failed to encode runs")
	}
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	runID := chi.URLParam(r, "run_id")

	summary, err := h.store.Get(ctx, runID)
	if errors.Is(err, history.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to load run")
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}

	if err := json.NewEncoder(w).Encode(summary); err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to encode run")
	}
}

func (h *Handler) GetRunDigest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)
	runID := chi.URLParam(r, "run_id")

	entries, err := auditlog.CollectRun(h.logDir, runID)
	if err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to collect run entries")
		http.Error(w, "failed to collect run entries", http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	digest := report.Build(entries)

	response := api.RunDigest{
		RunID:        digest.RunID,
		Status:       string(digest.Status),
		LogOnly:      digest.LogOnly,
		SitesScanned: digest.SitesScanned,
		RecordCount:  digest.RecordCount,
		FlaggedCount: digest.FlaggedCount,
		WarningCount: digest.WarningCount,
		ErrorCount:   digest.ErrorCount,
		Shortfall:    digest.Shortfall,
	}
	for _, rd := range digest.Resources {
		response.Resources = append(response.Resources, api.ResourceDigest{
			Resource:      string(rd.Resource),
			RecordCount:   rd.RecordCount,
			FlaggedCount:  rd.FlaggedCount,
			WarningCount:  rd.WarningCount,
			FailedPasses:  rd.FailedPasses,
			FlaggedBySite: rd.FlaggedBySite,
		})
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to encode digest")
	}
}
