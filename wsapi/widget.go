package wsapi

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/erikbos/wavesync/player"
)

// Commands sent to the widget.
const (
	CommandLoad      = "load"
	CommandPlay      = "play"
	CommandPause     = "pause"
	CommandSeek      = "seek"
	CommandSetVolume = "volume"
)

// Events reported by the widget.
const (
	EventReady    = "ready"
	EventState    = "state"
	EventProgress = "progress"
)

type WidgetCommand struct {
	Command string  `json:"command"`
	VideoID string  `json:"video_id,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
	Level   *int    `json:"level,omitempty"`
}

type WidgetEvent struct {
	Event string `json:"event"`
	// Code is the widget state, see player.StatePlaying.
	Code        int     `json:"code"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

// widgetConn is a player.Widget driven over a websocket. Getters return
// the last progress the widget reported.
type widgetConn struct {
	*conn

	mu          sync.Mutex
	currentTime float64
	duration    float64
}

func (w *widgetConn) Load(videoID string) {
	w.setProgress(0, 0)
	w.sendJSON(WidgetCommand{Command: CommandLoad, VideoID: videoID})
}

func (w *widgetConn) Play() {
	w.sendJSON(WidgetCommand{Command: CommandPlay})
}

func (w *widgetConn) Pause() {
	w.sendJSON(WidgetCommand{Command: CommandPause})
}

func (w *widgetConn) SeekTo(seconds float64) {
	w.sendJSON(WidgetCommand{Command: CommandSeek, Seconds: seconds})
}

func (w *widgetConn) SetVolume(level int) {
	w.sendJSON(WidgetCommand{Command: CommandSetVolume, Level: &level})
}

func (w *widgetConn) CurrentTime() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentTime
}

func (w *widgetConn) Duration() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.duration
}

func (w *widgetConn) setProgress(currentTime, duration float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.currentTime = currentTime
	w.duration = duration
}

// GET /ws/widget
//
// widgetHandler binds the embedded player of a client to the playback
// coordinator of its session. The coordinator takes the widget once it
// reports ready and lets go of it when the connection closes.
func (s *Server) widgetHandler(w http.ResponseWriter, r *http.Request) {
	session := s.authenticate(w, r)
	if session == nil {
		return
	}
	coordinator := s.sessions.Get(session)

	c, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	widget := &widgetConn{conn: c}
	c.log.WithField("user", session.UserID).Debug("Widget connected")

	go c.writeLoop()
	c.readLoop(func(m []byte) {
		var ev WidgetEvent
		if err := json.Unmarshal(m, &ev); err != nil {
			c.log.WithField("message", string(m)).Debug("Invalid widget event")
			return
		}
		handleWidgetEvent(coordinator, widget, ev)
	})
	coordinator.OnWidgetClosed(widget)
}

func handleWidgetEvent(c *player.Coordinator, w *widgetConn, ev WidgetEvent) {
	switch ev.Event {
	case EventReady:
		w.setProgress(ev.CurrentTime, ev.Duration)
		c.OnWidgetReady(w)
	case EventState:
		c.OnWidgetStateChange(ev.Code)
	case EventProgress:
		w.setProgress(ev.CurrentTime, ev.Duration)
	}
}
