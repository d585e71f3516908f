package socket

import (
	"net/http"

	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog"

	"vibin_client/models"
	"vibin_client/services"
)

const namespace = "/"

// Server bridges Socket.IO clients and the Hub. Peers push messages and
// typing notices in; UI sessions watch their view state out.
type Server struct {
	io     *socketio.Server
	hub    *Hub
	logger zerolog.Logger
}

// NewServer initializes the Socket.IO server and its event handlers
func NewServer(hub *Hub, logger zerolog.Logger) *Server {
	s := &Server{
		io:     socketio.NewServer(nil),
		hub:    hub,
		logger: logger,
	}

	s.io.OnConnect(namespace, func(c socketio.Conn) error {
		s.logger.Info().Str("socket_id", c.ID()).Msg("✅ socket connected")
		return nil
	})

	// join puts the socket into a match room so it sees newMessage/typing.
	s.io.OnEvent(namespace, "join", func(c socketio.Conn, data map[string]string) {
		socketEventsTotal.WithLabelValues("join").Inc()
		matchID := data["matchId"]
		if matchID == "" {
			s.logger.Warn().Str("socket_id", c.ID()).Msg("❌ invalid matchId in join request")
			return
		}
		c.Join(matchID)
		s.logger.Info().Str("socket_id", c.ID()).Str("match_id", matchID).Msg("👥 joined match")
	})

	// watch subscribes the socket to view updates of a UI session.
	s.io.OnEvent(namespace, "watch", func(c socketio.Conn, data map[string]string) {
		socketEventsTotal.WithLabelValues("watch").Inc()
		sessionID := data["sessionId"]
		if sessionID == "" {
			return
		}
		c.Join(sessionRoom(sessionID))
	})

	s.io.OnEvent(namespace, "sendMessage", func(c socketio.Conn, msg models.RawMessage) {
		socketEventsTotal.WithLabelValues("sendMessage").Inc()
		if err := s.Deliver(msg); err != nil {
			s.logger.Warn().Err(err).Str("socket_id", c.ID()).Msg("❌ rejected socket message")
		}
	})

	s.io.OnEvent(namespace, "typing", func(c socketio.Conn, data map[string]string) {
		socketEventsTotal.WithLabelValues("typing").Inc()
		s.Typing(data["matchId"])
	})

	s.io.OnError(namespace, func(c socketio.Conn, err error) {
		s.logger.Error().Err(err).Msg("socket error")
	})

	s.io.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		s.logger.Info().Str("socket_id", c.ID()).Str("reason", reason).Msg("❌ socket disconnected")
	})

	return s
}

// Deliver publishes a message from a peer to the match's conversations and
// socket room.
func (s *Server) Deliver(msg models.RawMessage) error {
	if msg.MatchID == "" || msg.MessageID == "" {
		return services.ErrIncompleteData
	}
	n := s.hub.Publish(models.ChatEvent{Type: models.ChatEventMessage, MatchID: msg.MatchID, Message: &msg})
	s.io.BroadcastToRoom(namespace, msg.MatchID, "newMessage", msg)
	s.logger.Debug().Str("match_id", msg.MatchID).Int("subscribers", n).Msg("📩 message delivered")
	return nil
}

// Typing publishes a typing notice for matchID.
func (s *Server) Typing(matchID string) {
	if matchID == "" {
		return
	}
	s.hub.Publish(models.ChatEvent{Type: models.ChatEventTyping, MatchID: matchID})
	s.io.BroadcastToRoom(namespace, matchID, "typing", map[string]string{"matchId": matchID})
}

// PushDiscovery sends a discovery view to sockets watching sessionID.
func (s *Server) PushDiscovery(sessionID string, v services.DiscoveryView) {
	s.io.BroadcastToRoom(namespace, sessionRoom(sessionID), "discovery", v)
}

// PushConversation sends a conversation view to sockets watching sessionID.
func (s *Server) PushConversation(sessionID string, v services.ConversationView) {
	s.io.BroadcastToRoom(namespace, sessionRoom(sessionID), "conversation", v)
}

// Serve runs the Socket.IO event loop until Close.
func (s *Server) Serve() error { return s.io.Serve() }

func (s *Server) Close() error { return s.io.Close() }

func (s *Server) Handler() http.Handler { return s.io }

func sessionRoom(sessionID string) string { return "session:" + sessionID }
