package httpapi

import "context"

// Viewer is the resolved caller of a request: either the trusted
// service key holder (the Discord bridge) or a registrant identified by
// the X-Registrant-Id header.
type Viewer struct {
	ViaServiceKey bool
	PlayerID      int64
	IsOrganizer   bool
	TeamFlag      string
}

// CanSeeRosterState reports whether roster and captain flags may be
// shown for players of the given team.
func (v Viewer) CanSeeRosterState(flag string) bool {
	return v.ViaServiceKey || (v.IsOrganizer && v.TeamFlag == flag)
}

type contextKey string

const viewerContextKey contextKey = "viewer"

func withViewer(ctx context.Context, v Viewer) context.Context {
	return context.WithValue(ctx, viewerContextKey, v)
}

func viewerFromContext(ctx context.Context) (Viewer, bool) {
	v, ok := ctx.Value(viewerContextKey).(Viewer)
	return v, ok
}
