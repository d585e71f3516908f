package routes

import (
	"net/http"

	"vibin_client/controllers"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes sets up the service-level routes
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.HandleFunc("/", controllers.WelcomeHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// RegisterSocketRoutes mounts the Socket.IO handler
func RegisterSocketRoutes(r *mux.Router, handler http.Handler) {
	r.PathPrefix("/socket.io/").Handler(handler)
}
