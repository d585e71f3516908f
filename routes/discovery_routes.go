package routes

import (
	"vibin_client/controllers"

	"github.com/gorilla/mux"
)

// RegisterDiscoveryRoutes sets up routes for swipe sessions under /api/discovery
func RegisterDiscoveryRoutes(r *mux.Router, controller *controllers.DiscoveryController) {
	discoveryRouter := r.PathPrefix("/api/discovery/sessions").Subrouter()

	discoveryRouter.HandleFunc("", controller.CreateSession).Methods("POST")
	discoveryRouter.HandleFunc("/{sessionId}", controller.GetSession).Methods("GET")
	discoveryRouter.HandleFunc("/{sessionId}", controller.DeleteSession).Methods("DELETE")
	discoveryRouter.HandleFunc("/{sessionId}/like", controller.Like).Methods("POST")
	discoveryRouter.HandleFunc("/{sessionId}/pass", controller.Pass).Methods("POST")
	discoveryRouter.HandleFunc("/{sessionId}/continue", controller.Continue).Methods("POST") // ✅ Dismiss the match hold
}
