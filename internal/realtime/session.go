package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"schoolattend/internal/auth"
)

const (
	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST layer already handles CORS; the page token is the gate here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// session is one connected client.
type session struct {
	conn   *websocket.Conn
	send   chan envelope
	rooms  map[string]struct{}
	userID string
	closed bool
}

func newSession(conn *websocket.Conn, userID string) *session {
	return &session{
		conn:   conn,
		send:   make(chan envelope, sendBuffer),
		rooms:  make(map[string]struct{}),
		userID: userID,
	}
}

// ServeWS upgrades the request and runs the session pumps. The page's
// stored token is passed as a query parameter; invalid tokens are refused
// before the upgrade.
func (h *Hub) ServeWS(c *gin.Context) {
	claims, err := auth.Parse(c.Query("token"), h.signingKey, h.issuer)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := newSession(conn, claims.UserID)
	sessionsGauge.Inc()
	log.Debug().Str("user", s.userID).Msg("realtime session connected")

	go s.writePump()
	s.readPump(h)
}

// readPump consumes inbound frames until the connection dies, then tears
// the session down.
func (s *session) readPump(h *Hub) {
	defer func() {
		h.drop(s)
		_ = s.conn.Close()
		log.Debug().Str("user", s.userID).Msg("realtime session disconnected")
	}()
	_ = s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		var env envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			return
		}
		h.handle(s, env)
	}
}

// writePump serializes all writes to the connection and keeps it alive
// with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case env, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
