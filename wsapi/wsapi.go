// Package wsapi implements the websocket interface: the embedded player
// widget bridge, live player state with commands, and chat inserts.
package wsapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/api"
	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/realtime"
	"github.com/erikbos/wavesync/session"
)

type Options struct {
	Auth     *auth.Provider
	Sessions *session.Registry
	Chats    database.ChatRepo
	Broker   realtime.Broker
	// RequestTimeout bounds store work triggered by a websocket message.
	RequestTimeout time.Duration
	Logger         logrus.FieldLogger
}

type Server struct {
	auth     *auth.Provider
	sessions *session.Registry
	chats    database.ChatRepo
	broker   realtime.Broker
	upgrader *websocket.Upgrader
	timeout  time.Duration
	log      logrus.FieldLogger
}

func New(o *Options) *Server {
	s := &Server{
		auth:     o.Auth,
		sessions: o.Sessions,
		chats:    o.Chats,
		broker:   o.Broker,
		timeout:  o.RequestTimeout,
		log:      o.Logger,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  wsReadBufferSize,
			WriteBufferSize: wsWriteBufferSize,
			// origins are checked by the CORS layer in front of us
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.timeout <= 0 {
		s.timeout = defaultCommandTimeout
	}
	return s
}

func (s *Server) RegisterHandlers(r *mux.Router) {
	r.HandleFunc("/ws/widget", s.widgetHandler).Methods("GET")
	r.HandleFunc("/ws/player", s.playerHandler).Methods("GET")
	r.HandleFunc("/ws/chats/{chat}", s.chatHandler).Methods("GET")
}

// authenticate resolves the session of a websocket request before the
// upgrade, so failures are plain HTTP errors.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) *auth.Session {
	session, err := s.auth.GetCurrentSession(r.Context(), api.BearerToken(r))
	if err != nil {
		if !errors.Is(err, auth.ErrNoSession) {
			s.log.WithError(err).Warn("Error validating access token")
		}
		http.Error(w, "invalid access token", http.StatusUnauthorized)
		return nil
	}
	return session
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) (*conn, bool) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("Websocket upgrade failed")
		return nil, false
	}
	return newConn(ws, s.log), true
}

// GET /ws/chats/{chat}
//
// chatHandler streams messages inserted into a chat the user takes part in.
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	session := s.authenticate(w, r)
	if session == nil {
		return
	}
	chatID := mux.Vars(r)["chat"]
	ok, err := s.chats.IsChatParticipant(r.Context(), chatID, session.UserID)
	if err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "chat not found", http.StatusNotFound)
		return
	}

	c, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	topic := realtime.Topic("messages", realtime.Filter{Column: "chat_id", Value: chatID})
	unsubscribe, err := s.broker.Subscribe(topic, func(payload []byte) {
		select {
		case <-c.closing:
		case c.sendQueue <- payload:
		default:
			c.log.Debug("Send queue full, dropping message")
		}
	})
	if err != nil {
		c.log.WithError(err).Warn("Could not subscribe to chat")
		c.ws.Close()
		return
	}
	c.log.WithFields(logrus.Fields{"user": session.UserID, "chat": chatID}).Debug("Chat subscriber joined")

	go c.writeLoop()
	// incoming messages are ignored, reading keeps the pong handler running
	c.readLoop(func([]byte) {})
	unsubscribe()
}

// requestContext returns a context for work triggered by a websocket message.
func (s *Server) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
