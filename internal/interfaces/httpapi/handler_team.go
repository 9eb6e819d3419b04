package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/kfcrebrand/registration/internal/usecase"
)

// ListTeams is public: anyone can see which flags exist.
func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	teams, err := h.rosterService.Teams(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list teams failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	out := make([]teamDTO, 0, len(teams))
	for _, t := range teams {
		out = append(out, teamDTO{Flag: t.Flag})
	}

	writeSuccess(ctx, w, http.StatusOK, out)
}

// GetTeamMembers returns the roster state for one team. Roster and
// captain flags are only serialized for the service key holder and the
// team's own organizers.
func (h *Handler) GetTeamMembers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeamMembers")
	defer span.End()

	flag := r.PathValue("flag")
	membership, err := h.rosterService.Membership(ctx, flag)
	if err != nil {
		h.logger.WarnContext(ctx, "get team members failed", "flag", flag, "error", err)
		writeError(ctx, w, err)
		return
	}

	viewer, _ := viewerFromContext(ctx)
	writeSuccess(ctx, w, http.StatusOK, membershipToDTO(membership, viewer.CanSeeRosterState(flag)))
}

// UpdateTeamMembers replaces the roster and backup sets of one team.
func (h *Handler) UpdateTeamMembers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateTeamMembers")
	defer span.End()

	flag := r.PathValue("flag")

	viewer, ok := viewerFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: authentication required", usecase.ErrUnauthorized))
		return
	}
	if !viewer.CanSeeRosterState(flag) {
		writeError(ctx, w, fmt.Errorf("%w: roster edits require the service key or a team organizer", usecase.ErrUnauthorized))
		return
	}

	var update usecase.MembershipUpdate
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&update); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}

	membership, err := h.rosterService.ApplyMembership(ctx, flag, update)
	if err != nil {
		h.logger.WarnContext(ctx, "update team members failed", "flag", flag, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, membershipToDTO(membership, true))
}
