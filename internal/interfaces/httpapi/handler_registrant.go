package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	sonic "github.com/bytedance/sonic"

	"github.com/kfcrebrand/registration/internal/usecase"
)

// ListRegistrants returns every registered player with full roster
// state. The route sits behind the service key guard.
func (h *Handler) ListRegistrants(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListRegistrants")
	defer span.End()

	players, err := h.registrantService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list registrants failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playersToDTO(players, true))
}

// GetRegistrant resolves one registrant. ?key= selects the lookup kind
// (pk, discord, osu) and ?badge_cutoff_date= overrides the badge view
// cutoff with a unix timestamp.
func (h *Handler) GetRegistrant(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetRegistrant")
	defer span.End()

	query := r.URL.Query()
	cutoff, err := usecase.ParseBadgeCutoff(query.Get("badge_cutoff_date"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	detail, err := h.registrantService.Get(ctx, query.Get("key"), r.PathValue("id"), cutoff)
	if err != nil {
		h.logger.WarnContext(ctx, "get registrant failed", "id", r.PathValue("id"), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, registrantDetailToDTO(detail, true))
}

type updateRegistrantRequest struct {
	IsOrganizer json.RawMessage `json:"is_organizer"`
}

// UpdateRegistrant toggles the organizer flag. The field is decoded by
// hand so a missing key and a wrongly typed value report differently.
func (h *Handler) UpdateRegistrant(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateRegistrant")
	defer span.End()

	playerID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(ctx, w, fmt.Errorf("%w: registrant id must be an integer", usecase.ErrInvalidInput))
		return
	}

	var req updateRegistrantRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if req.IsOrganizer == nil {
		writeError(ctx, w, fmt.Errorf("%w: is_organizer", usecase.ErrMissingField))
		return
	}
	var organizer bool
	if err := sonic.Unmarshal(req.IsOrganizer, &organizer); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: is_organizer must be a boolean", usecase.ErrInvalidFieldType))
		return
	}

	updated, err := h.registrantService.SetOrganizer(ctx, playerID, organizer)
	if err != nil {
		h.logger.WarnContext(ctx, "update registrant failed", "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerToDTO(updated, true))
}
