package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibin_client/models"
	"vibin_client/services"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{services.ErrSessionNotFound, http.StatusNotFound},
		{services.ErrInvalidMessage, http.StatusBadRequest},
		{services.ErrInvalidState, http.StatusConflict},
		{services.ErrIncompleteData, http.StatusUnprocessableEntity},
		{services.ErrTransportUnavailable, http.StatusBadGateway},
		{fmt.Errorf("like: %w", services.ErrTransportUnavailable), http.StatusBadGateway},
		{&services.SendError{Err: services.ErrTransportUnavailable}, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

type recordingPusher struct {
	mu            sync.Mutex
	discovery     map[string][]services.DiscoveryView
	conversations map[string][]services.ConversationView
}

func newRecordingPusher() *recordingPusher {
	return &recordingPusher{
		discovery:     map[string][]services.DiscoveryView{},
		conversations: map[string][]services.ConversationView{},
	}
}

func (p *recordingPusher) PushDiscovery(id string, v services.DiscoveryView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discovery[id] = append(p.discovery[id], v)
}

func (p *recordingPusher) PushConversation(id string, v services.ConversationView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conversations[id] = append(p.conversations[id], v)
}

type failingTransport struct{}

func (failingTransport) LoadConversation(context.Context, string, string) (models.ConversationSnapshot, error) {
	return models.ConversationSnapshot{
		OtherParty: models.OtherParty{ID: "ana", Name: "Ana"},
	}, nil
}

func (failingTransport) SendMessage(context.Context, models.OutgoingMessage) (models.RawMessage, error) {
	return models.RawMessage{}, errors.New("connection refused")
}

func TestDiscoveryController_PushesViewsForSession(t *testing.T) {
	pusher := newRecordingPusher()
	mock := services.NewMockBackend(2, 2, services.WithMockMatchRate(0), services.WithMockLogger(zerolog.Nop()))
	dc := NewDiscoveryController(mock, pusher, zerolog.Nop(), services.WithHoldDurations(0, 0), services.WithDiscoveryLogger(zerolog.Nop()))
	defer dc.Sessions.CloseAll()

	r := mux.NewRouter()
	r.HandleFunc("/sessions", dc.CreateSession).Methods("POST")
	r.HandleFunc("/sessions/{sessionId}/pass", dc.Pass).Methods("POST")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(`{"viewerId":"viewer"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		SessionID string `json:"sessionId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/"+created.SessionID+"/pass", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	views := pusher.discovery[created.SessionID]
	require.Len(t, views, 3)
	assert.Equal(t, "idle", views[0].State)
	assert.Equal(t, "submitting", views[1].State)
	assert.Equal(t, 1, views[2].Position)
}

func TestChatController_SendFailureKeepsMessage(t *testing.T) {
	cc := NewChatController(failingTransport{}, nil, nil, zerolog.Nop(), services.WithConversationLogger(zerolog.Nop()))
	defer cc.Sessions.CloseAll()

	conv, err := services.OpenConversation(context.Background(), failingTransport{}, "m1", "viewer", cc.Options...)
	require.NoError(t, err)
	cc.Sessions.Put("s1", conv)

	r := mux.NewRouter()
	r.HandleFunc("/c/{sessionId}/messages", cc.SendMessage).Methods("POST")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/c/s1/messages", bytes.NewBufferString(`{"content":"hello?"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var body sendFailedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Message.Failed)
	assert.Equal(t, "hello?", body.Message.Content)
	assert.Len(t, conv.Messages(), 1)
}
