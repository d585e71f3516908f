package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibin_client/controllers"
	"vibin_client/models"
	"vibin_client/services"
)

type testAPI struct {
	router *mux.Router
	mock   *services.MockBackend
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	mock := services.NewMockBackend(1, 3, services.WithMockMatchRate(1), services.WithMockLogger(zerolog.Nop()))
	t.Cleanup(func() { _ = mock.Close() })

	dc := controllers.NewDiscoveryController(mock, nil, zerolog.Nop(),
		services.WithHoldDurations(0, 0), services.WithDiscoveryLogger(zerolog.Nop()))
	cc := controllers.NewChatController(mock, nil, nil, zerolog.Nop(), services.WithConversationLogger(zerolog.Nop()))
	t.Cleanup(func() {
		_ = dc.Sessions.CloseAll()
		_ = cc.Sessions.CloseAll()
	})

	r := mux.NewRouter()
	RegisterRoutes(r)
	RegisterDiscoveryRoutes(r, dc)
	RegisterChatRoutes(r, cc)
	RegisterVoiceRoutes(r, controllers.NewVoiceController(nil, zerolog.Nop()))
	return &testAPI{router: r, mock: mock}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type sessionBody[V any] struct {
	SessionID string `json:"sessionId"`
	View      V      `json:"view"`
}

func TestHealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vibin_client_matches_total")
}

func TestDiscoverySessionFlow(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/discovery/sessions", map[string]string{"viewerId": "viewer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created sessionBody[services.DiscoveryView]
	decode(t, rec, &created)
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, "idle", created.View.State)
	assert.Equal(t, 3, created.View.Total)
	require.NotNil(t, created.View.Current)

	base := "/api/discovery/sessions/" + created.SessionID

	rec = api.do(t, http.MethodPost, base+"/like", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var liked struct {
		Outcome services.ActionOutcome `json:"outcome"`
		View    services.DiscoveryView `json:"view"`
	}
	decode(t, rec, &liked)
	assert.True(t, liked.Outcome.Matched)
	assert.NotEmpty(t, liked.Outcome.MatchID)
	assert.Equal(t, 1, liked.View.Position)

	rec = api.do(t, http.MethodPost, base+"/continue", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodPost, base+"/pass", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var view services.DiscoveryView
	decode(t, rec, &view)
	assert.Equal(t, 2, view.Position)

	rec = api.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscoverySessionValidation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/discovery/sessions", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, "/api/discovery/sessions/nope/like", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversationFlow(t *testing.T) {
	api := newTestAPI(t)
	res, err := api.mock.Like(context.Background(), "viewer", "mock-001")
	require.NoError(t, err)
	require.True(t, res.Matched)

	rec := api.do(t, http.MethodPost, "/api/chat/conversations", map[string]string{"matchId": res.MatchID, "viewerId": "viewer"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var opened sessionBody[services.ConversationView]
	decode(t, rec, &opened)
	assert.Equal(t, "mock-001", opened.View.OtherParty.ID)
	assert.Empty(t, opened.View.Messages)

	base := "/api/chat/conversations/" + opened.SessionID

	rec = api.do(t, http.MethodPost, base+"/messages", map[string]string{"content": "hi there"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sent struct {
		Message models.Message            `json:"message"`
		View    services.ConversationView `json:"view"`
	}
	decode(t, rec, &sent)
	assert.Equal(t, models.DeliveryConfirmed, sent.Message.State)
	assert.False(t, strings.HasPrefix(sent.Message.ID, "local-"))
	assert.Len(t, sent.View.Messages, 1)

	rec = api.do(t, http.MethodPost, base+"/messages", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = api.do(t, http.MethodPost, base+"/simulate", map[string]interface{}{
		"message": models.RawMessage{MatchID: res.MatchID, MessageID: "sim-1", SenderID: "mock-001", Content: "hey!", CreatedAt: "2030-01-01T00:00:00Z", IsUnread: true},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var view services.ConversationView
	decode(t, rec, &view)
	assert.Equal(t, 1, view.UnreadCount)

	rec = api.do(t, http.MethodPost, base+"/read", map[string]interface{}{})
	require.Equal(t, http.StatusOK, rec.Code)
	var read struct {
		Changed int                       `json:"changed"`
		View    services.ConversationView `json:"view"`
	}
	decode(t, rec, &read)
	assert.Equal(t, 1, read.Changed)
	assert.Zero(t, read.View.UnreadCount)

	rec = api.do(t, http.MethodPost, base+"/messages/"+sent.Message.ID+"/resend", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = api.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOpenUnknownConversation(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/chat/conversations", map[string]string{"matchId": "missing", "viewerId": "viewer"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "incomplete data")
}

func TestVoiceRoutesWithoutBucket(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/voice/upload-url", map[string]string{"matchId": "m", "fileName": "a.m4a", "fileType": "audio/mp4"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
