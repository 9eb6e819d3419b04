package httpapi

import (
	"net/http"
)

// RunRefreshStatsJob sweeps every player's osu stats. Triggered by the
// scheduler through the internal job token guard.
func (h *Handler) RunRefreshStatsJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunRefreshStatsJob")
	defer span.End()

	result, err := h.refreshService.RefreshAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "stats refresh job failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}
