package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
	mux.HandleFunc("GET /v1/teams/{flag}/members", handler.GetTeamMembers)
}

func registerSessionRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("POST /v1/auth/login", RequireServiceKey(http.HandlerFunc(handler.Login)))
	mux.Handle("DELETE /v1/auth/account", RequireViewer(http.HandlerFunc(handler.DeleteAccount)))
}

func registerRegistrantRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("GET /v1/registrants", RequireServiceKey(http.HandlerFunc(handler.ListRegistrants)))
	mux.Handle("GET /v1/registrants/{id}", RequireServiceKey(http.HandlerFunc(handler.GetRegistrant)))
	mux.Handle("PATCH /v1/registrants/{id}", RequireServiceKey(http.HandlerFunc(handler.UpdateRegistrant)))
}

func registerTeamEditRoutes(mux *http.ServeMux, handler *Handler) {
	mux.Handle("PATCH /v1/teams/{flag}/members", RequireViewer(http.HandlerFunc(handler.UpdateTeamMembers)))
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/refresh-stats", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunRefreshStatsJob)))
}
