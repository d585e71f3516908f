package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"vibin_client/models"
	"vibin_client/services"
	"vibin_client/utils"
)

// ChatController exposes open conversations as HTTP sessions
type ChatController struct {
	Transport services.MessageTransport
	Notifier  services.Notifier
	Sessions  *services.SessionStore[*services.Conversation]
	Pusher    ViewPusher
	Options   []services.ConversationOption
	Logger    zerolog.Logger
}

// NewChatController initializes the chat controller
func NewChatController(transport services.MessageTransport, notifier services.Notifier, pusher ViewPusher, logger zerolog.Logger, opts ...services.ConversationOption) *ChatController {
	return &ChatController{
		Transport: transport,
		Notifier:  notifier,
		Sessions:  services.NewSessionStore[*services.Conversation](),
		Pusher:    pusher,
		Options:   opts,
		Logger:    logger,
	}
}

type openConversationRequest struct {
	MatchID  string `json:"matchId"`
	ViewerID string `json:"viewerId"`
}

type conversationSessionResponse struct {
	SessionID string                    `json:"sessionId"`
	View      services.ConversationView `json:"view"`
}

type messageResponse struct {
	Message models.Message            `json:"message"`
	View    services.ConversationView `json:"view"`
}

type sendFailedResponse struct {
	Error   string         `json:"error"`
	Message models.Message `json:"message"`
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type markReadResponse struct {
	Changed int                       `json:"changed"`
	View    services.ConversationView `json:"view"`
}

type simulateRequest struct {
	Message models.RawMessage `json:"message"`
	DelayMs int64             `json:"delayMs"`
}

// OpenConversation hydrates a conversation for the viewer
func (cc *ChatController) OpenConversation(w http.ResponseWriter, r *http.Request) {
	var req openConversationRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.MatchID == "" || req.ViewerID == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "matchId and viewerId are required")
		return
	}

	id := cc.Sessions.NewID()
	opts := append([]services.ConversationOption{}, cc.Options...)
	if cc.Notifier != nil {
		opts = append(opts, services.WithNotifier(cc.Notifier))
	}
	if cc.Pusher != nil {
		opts = append(opts, services.WithConversationObserver(func(v services.ConversationView) {
			cc.Pusher.PushConversation(id, v)
		}))
	}

	conv, err := services.OpenConversation(r.Context(), cc.Transport, req.MatchID, req.ViewerID, opts...)
	if err != nil {
		cc.Logger.Error().Err(err).Str("match_id", req.MatchID).Msg("❌ failed to open conversation")
		writeServiceError(w, err)
		return
	}
	cc.Sessions.Put(id, conv)

	utils.WriteJSONResponse(w, http.StatusCreated, conversationSessionResponse{SessionID: id, View: conv.View()})
}

// GetConversation returns the current view
func (cc *ChatController) GetConversation(w http.ResponseWriter, r *http.Request) {
	conv, ok := cc.conversation(w, r)
	if !ok {
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, conv.View())
}

// SendMessage sends a text or voice message
func (cc *ChatController) SendMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := cc.conversation(w, r)
	if !ok {
		return
	}
	var req services.SendRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := conv.Send(r.Context(), req)
	cc.writeSendResult(w, conv, msg, err)
}

// ResendMessage retries a failed message in place
func (cc *ChatController) ResendMessage(w http.ResponseWriter, r *http.Request) {
	conv, ok := cc.conversation(w, r)
	if !ok {
		return
	}
	msg, err := conv.Resend(r.Context(), mux.Vars(r)["messageId"])
	cc.writeSendResult(w, conv, msg, err)
}

func (cc *ChatController) writeSendResult(w http.ResponseWriter, conv *services.Conversation, msg models.Message, err error) {
	var sendErr *services.SendError
	switch {
	case errors.As(err, &sendErr):
		utils.WriteJSONResponse(w, statusFor(err), sendFailedResponse{Error: err.Error(), Message: sendErr.Message})
	case err != nil:
		writeServiceError(w, err)
	default:
		utils.WriteJSONResponse(w, http.StatusCreated, messageResponse{Message: msg, View: conv.View()})
	}
}

// MarkRead marks the given messages read, or all of them when none are given
func (cc *ChatController) MarkRead(w http.ResponseWriter, r *http.Request) {
	conv, ok := cc.conversation(w, r)
	if !ok {
		return
	}
	var req markReadRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var changed int
	if len(req.MessageIDs) == 0 {
		changed = conv.MarkAllRead(r.Context())
	} else {
		changed = conv.MarkRead(r.Context(), req.MessageIDs...)
	}
	utils.WriteJSONResponse(w, http.StatusOK, markReadResponse{Changed: changed, View: conv.View()})
}

// SimulateIncoming schedules a message from the other party after a delay,
// showing the typing indicator meanwhile
func (cc *ChatController) SimulateIncoming(w http.ResponseWriter, r *http.Request) {
	conv, ok := cc.conversation(w, r)
	if !ok {
		return
	}
	var req simulateRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DelayMs < 0 {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "delayMs must not be negative")
		return
	}

	if err := conv.ReceiveSimulated(req.Message, time.Duration(req.DelayMs)*time.Millisecond); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusAccepted, conv.View())
}

// CloseConversation tears the conversation down
func (cc *ChatController) CloseConversation(w http.ResponseWriter, r *http.Request) {
	if err := cc.Sessions.Remove(mux.Vars(r)["sessionId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (cc *ChatController) conversation(w http.ResponseWriter, r *http.Request) (*services.Conversation, bool) {
	conv, err := cc.Sessions.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return conv, true
}
