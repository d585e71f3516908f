package routes

import (
	"vibin_client/controllers"

	"github.com/gorilla/mux"
)

// RegisterVoiceRoutes sets up routes for voice clip storage
func RegisterVoiceRoutes(r *mux.Router, controller *controllers.VoiceController) {
	voiceRouter := r.PathPrefix("/api/voice").Subrouter()
	voiceRouter.HandleFunc("/upload-url", controller.GenerateUploadURL).Methods("POST")
	voiceRouter.HandleFunc("/read-url", controller.GetReadURL).Methods("POST")
}
