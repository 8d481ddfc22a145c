package wsapi

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const (
	wsReadBufferSize  = 1024
	wsWriteBufferSize = 1024
	sendQueueSize     = 32
	maxMessageSize    = 64 << 10

	WriteWait = 10 * time.Second
	// PongWait is how long a silent connection is kept open.
	PongWait   = 60 * time.Second
	pingPeriod = PongWait * 9 / 10
)

// conn is an established websocket connection with a dedicated writer.
type conn struct {
	ID        string
	ws        *websocket.Conn
	sendQueue chan []byte
	closing   chan struct{}
	closeOnce sync.Once
	log       logrus.FieldLogger
}

func newConn(ws *websocket.Conn, log logrus.FieldLogger) *conn {
	id := xid.New().String()
	return &conn{
		ID:        id,
		ws:        ws,
		sendQueue: make(chan []byte, sendQueueSize),
		closing:   make(chan struct{}),
		log:       log.WithFields(logrus.Fields{"conn": id, "remote": ws.RemoteAddr().String()}),
	}
}

// sendJSON queues v for sending. Messages to a client that does not keep
// up are dropped.
func (c *conn) sendJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		c.log.WithError(err).Warn("Could not encode message")
		return
	}
	select {
	case <-c.closing:
	case c.sendQueue <- b:
	default:
		c.log.Debug("Send queue full, dropping message")
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.closing)
	})
}

// the goroutine that runs this function writes to c.ws
func (c *conn) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case b := <-c.sendQueue:
			c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.closing:
			c.ws.SetWriteDeadline(time.Now().Add(WriteWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// readLoop calls handle for every text message until the connection
// fails or is closed.
func (c *conn) readLoop(handle func([]byte)) {
	defer c.close()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(PongWait))
	})
	for {
		_, m, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.WithError(err).Info("Unexpected websocket closure")
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(PongWait))
		handle(m)
	}
}
