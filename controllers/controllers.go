package controllers

import (
	"errors"
	"net/http"

	"vibin_client/services"
	"vibin_client/utils"
)

// ViewPusher pushes fresh engine views to watching clients.
// *socket.Server implements it.
type ViewPusher interface {
	PushDiscovery(sessionID string, v services.DiscoveryView)
	PushConversation(sessionID string, v services.ConversationView)
}

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to Vibin"})
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidMessage):
		return http.StatusBadRequest
	case services.IsInvalidState(err):
		return http.StatusConflict
	case services.IsIncompleteData(err):
		return http.StatusUnprocessableEntity
	case services.IsTransportUnavailable(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	utils.WriteErrorResponse(w, statusFor(err), err.Error())
}
