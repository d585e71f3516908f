package routes

import (
	"vibin_client/controllers"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes sets up routes for conversations under /api/chat
func RegisterChatRoutes(r *mux.Router, controller *controllers.ChatController) {
	chatRouter := r.PathPrefix("/api/chat/conversations").Subrouter()

	chatRouter.HandleFunc("", controller.OpenConversation).Methods("POST")
	chatRouter.HandleFunc("/{sessionId}", controller.GetConversation).Methods("GET")
	chatRouter.HandleFunc("/{sessionId}", controller.CloseConversation).Methods("DELETE")
	chatRouter.HandleFunc("/{sessionId}/messages", controller.SendMessage).Methods("POST")
	chatRouter.HandleFunc("/{sessionId}/messages/{messageId}/resend", controller.ResendMessage).Methods("POST")
	chatRouter.HandleFunc("/{sessionId}/read", controller.MarkRead).Methods("POST")
	chatRouter.HandleFunc("/{sessionId}/simulate", controller.SimulateIncoming).Methods("POST")
}
