package controllers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"vibin_client/services"
	"vibin_client/utils"
)

// DiscoveryController exposes swipe queues as HTTP sessions
type DiscoveryController struct {
	Source   services.CandidateSource
	Sessions *services.SessionStore[*services.DiscoveryEngine]
	Pusher   ViewPusher
	Options  []services.DiscoveryOption
	Logger   zerolog.Logger
}

// NewDiscoveryController creates a controller whose engines are built with opts
func NewDiscoveryController(source services.CandidateSource, pusher ViewPusher, logger zerolog.Logger, opts ...services.DiscoveryOption) *DiscoveryController {
	return &DiscoveryController{
		Source:   source,
		Sessions: services.NewSessionStore[*services.DiscoveryEngine](),
		Pusher:   pusher,
		Options:  opts,
		Logger:   logger,
	}
}

type createDiscoveryRequest struct {
	ViewerID string `json:"viewerId"`
}

type discoverySessionResponse struct {
	SessionID string                 `json:"sessionId"`
	View      services.DiscoveryView `json:"view"`
}

type likeResponse struct {
	Outcome services.ActionOutcome `json:"outcome"`
	View    services.DiscoveryView `json:"view"`
}

// CreateSession loads a fresh queue for the viewer
func (dc *DiscoveryController) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createDiscoveryRequest
	if err := utils.DecodeJSONBody(r, &req); err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ViewerID == "" {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "viewerId is required")
		return
	}

	id := dc.Sessions.NewID()
	opts := append([]services.DiscoveryOption{}, dc.Options...)
	if dc.Pusher != nil {
		opts = append(opts, services.WithDiscoveryObserver(func(v services.DiscoveryView) {
			dc.Pusher.PushDiscovery(id, v)
		}))
	}

	engine := services.NewDiscoveryEngine(dc.Source, req.ViewerID, opts...)
	if err := engine.Load(r.Context()); err != nil {
		_ = engine.Close()
		dc.Logger.Error().Err(err).Str("viewer_id", req.ViewerID).Msg("❌ failed to start discovery")
		writeServiceError(w, err)
		return
	}
	dc.Sessions.Put(id, engine)

	dc.Logger.Info().Str("session_id", id).Str("viewer_id", req.ViewerID).Msg("✅ discovery session started")
	utils.WriteJSONResponse(w, http.StatusCreated, discoverySessionResponse{SessionID: id, View: engine.View()})
}

// GetSession returns the current view
func (dc *DiscoveryController) GetSession(w http.ResponseWriter, r *http.Request) {
	engine, ok := dc.engine(w, r)
	if !ok {
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, engine.View())
}

// Like likes the current candidate
func (dc *DiscoveryController) Like(w http.ResponseWriter, r *http.Request) {
	engine, ok := dc.engine(w, r)
	if !ok {
		return
	}
	outcome, err := engine.SubmitLike(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, likeResponse{Outcome: outcome, View: engine.View()})
}

// Pass passes on the current candidate
func (dc *DiscoveryController) Pass(w http.ResponseWriter, r *http.Request) {
	engine, ok := dc.engine(w, r)
	if !ok {
		return
	}
	if err := engine.SubmitPass(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, engine.View())
}

// Continue ends a match or like hold early
func (dc *DiscoveryController) Continue(w http.ResponseWriter, r *http.Request) {
	engine, ok := dc.engine(w, r)
	if !ok {
		return
	}
	if err := engine.ContinueFromHold(); err != nil {
		writeServiceError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, engine.View())
}

// DeleteSession abandons the queue
func (dc *DiscoveryController) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := dc.Sessions.Remove(mux.Vars(r)["sessionId"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (dc *DiscoveryController) engine(w http.ResponseWriter, r *http.Request) (*services.DiscoveryEngine, bool) {
	engine, err := dc.Sessions.Get(mux.Vars(r)["sessionId"])
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}
	return engine, true
}
