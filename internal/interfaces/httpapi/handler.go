package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/kfcrebrand/registration/internal/usecase"
)

// DiscordResolver resolves a Discord user access token to the identity
// it belongs to.
type DiscordResolver interface {
	FetchSelf(ctx context.Context, accessToken string) (usecase.DiscordIdentity, error)
}

// Handler carries the services behind the HTTP surface.
type Handler struct {
	identityService   *usecase.IdentityService
	rosterService     *usecase.RosterService
	registrantService *usecase.RegistrantService
	refreshService    *usecase.StatsRefreshService
	discordResolver   DiscordResolver
	logger            *slog.Logger
	validator         *validator.Validate
}

// SetDiscordResolver enables login payloads that carry a Discord access
// token instead of an inline identity document.
func (h *Handler) SetDiscordResolver(resolver DiscordResolver) {
	h.discordResolver = resolver
}

func NewHandler(
	identityService *usecase.IdentityService,
	rosterService *usecase.RosterService,
	registrantService *usecase.RegistrantService,
	refreshService *usecase.StatsRefreshService,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		identityService:   identityService,
		rosterService:     rosterService,
		registrantService: registrantService,
		refreshService:    refreshService,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) validateRequest(ctx context.Context, req any) error {
	if err := h.validator.StructCtx(ctx, req); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}
