package handlers

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the health check and the run history API on router.
// The API routes sit behind auth; /health stays public.
func RegisterRoutes(router *mux.Router, runs *RunHandler, auth *APIKeyMiddleware, db Pinger) {
	router.HandleFunc("/health", HealthHandler(db)).Methods("GET")

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(auth.Handler)

	apiRouter.HandleFunc("/runs", runs.List).Methods("GET")
	apiRouter.HandleFunc("/runs/{run_id}", runs.GetByID).Methods("GET")
	apiRouter.HandleFunc("/runs/{run_id}/report", runs.Report).Methods("GET")
}
