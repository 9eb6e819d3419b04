package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	sonic "github.com/bytedance/sonic"

	"github.com/kfcrebrand/registration/internal/usecase"
)

type discordIdentityRequest struct {
	ID            string `json:"id" validate:"required"`
	Username      string `json:"username" validate:"required"`
	Discriminator string `json:"discriminator" validate:"required"`
}

type osuIdentityRequest struct {
	ID          int64             `json:"id" validate:"required,gt=0"`
	Username    string            `json:"username" validate:"required"`
	CountryCode string            `json:"country_code" validate:"required,max=4"`
	GlobalRank  *int64            `json:"global_rank"`
	Badges      []badgeRequestDTO `json:"badges"`
}

type badgeRequestDTO struct {
	Description string `json:"description"`
	AwardedAt   string `json:"awarded_at"`
	URL         string `json:"url"`
	ImageURL    string `json:"image_url"`
	ImageURL2x  string `json:"image@2x_url"`
}

type loginRequest struct {
	Discord *discordIdentityRequest `json:"discord"`
	// DiscordAccessToken is accepted in place of the inline discord
	// document; the identity is then resolved through the Discord API.
	DiscordAccessToken string              `json:"discord_access_token"`
	Osu                *osuIdentityRequest `json:"osu"`
}

// Login links the two identity payloads into one player. The OAuth
// token exchange happens upstream; this endpoint receives the already
// fetched identity documents.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Login")
	defer span.End()

	var req loginRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if req.Osu == nil {
		writeError(ctx, w, fmt.Errorf("%w: both discord and osu identities are required", usecase.ErrIncompleteIdentity))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	var discord usecase.DiscordIdentity
	switch {
	case req.Discord != nil:
		discord = usecase.DiscordIdentity{
			ID:            req.Discord.ID,
			Username:      req.Discord.Username,
			Discriminator: req.Discord.Discriminator,
		}
	case req.DiscordAccessToken != "" && h.discordResolver != nil:
		resolved, err := h.discordResolver.FetchSelf(ctx, req.DiscordAccessToken)
		if err != nil {
			h.logger.WarnContext(ctx, "discord token resolution failed", "error", err)
			writeError(ctx, w, err)
			return
		}
		discord = resolved
	default:
		writeError(ctx, w, fmt.Errorf("%w: both discord and osu identities are required", usecase.ErrIncompleteIdentity))
		return
	}
	osu := usecase.OsuIdentity{
		ID:          req.Osu.ID,
		Username:    req.Osu.Username,
		CountryCode: req.Osu.CountryCode,
		GlobalRank:  req.Osu.GlobalRank,
	}
	badges, err := badgesFromRequest(req.Osu.Badges)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	osu.Badges = badges

	linked, err := h.identityService.Link(ctx, discord, osu)
	if err != nil {
		h.logger.WarnContext(ctx, "identity link failed", "osu_user_id", osu.ID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, playerToDTO(linked, true))
}

// DeleteAccount removes a registrant. The service key holder names the
// target with ?id=; a registrant identified by header deletes itself.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeleteAccount")
	defer span.End()

	viewer, ok := viewerFromContext(ctx)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: authentication required", usecase.ErrUnauthorized))
		return
	}

	var playerID int64
	if viewer.ViaServiceKey {
		raw := r.URL.Query().Get("id")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(ctx, w, fmt.Errorf("%w: id query parameter must be an integer", usecase.ErrInvalidInput))
			return
		}
		playerID = id
	} else {
		playerID = viewer.PlayerID
	}

	if err := h.identityService.DeleteAccount(ctx, playerID); err != nil {
		h.logger.WarnContext(ctx, "account deletion failed", "player_id", playerID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{"deleted": true})
}
