package wsapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/erikbos/wavesync/player"
)

const defaultCommandTimeout = 10 * time.Second

// Commands accepted on the player socket.
const (
	PlayerPlay              = "play"
	PlayerQueue             = "queue"
	PlayerToggle            = "toggle"
	PlayerNext              = "next"
	PlayerPrev              = "prev"
	PlayerSeek              = "seek"
	PlayerVolume            = "volume"
	PlayerMute              = "mute"
	PlayerAddToLibrary      = "add_to_library"
	PlayerRemoveFromLibrary = "remove_from_library"
)

type PlayerCommand struct {
	Command string         `json:"command"`
	Track   *player.Track  `json:"track,omitempty"`
	Tracks  []player.Track `json:"tracks,omitempty"`
	Start   int            `json:"start,omitempty"`
	Seconds float64        `json:"seconds,omitempty"`
	Level   int            `json:"level,omitempty"`
}

// PlayerMessage is sent to player clients, exactly one of the fields
// after Type is set.
type PlayerMessage struct {
	// Type is state, notice or error.
	Type   string         `json:"type"`
	State  *player.State  `json:"state,omitempty"`
	Notice *player.Notice `json:"notice,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// GET /ws/player
//
// playerHandler sends the playback state of the session on every change
// and executes player commands.
func (s *Server) playerHandler(w http.ResponseWriter, r *http.Request) {
	session := s.authenticate(w, r)
	if session == nil {
		return
	}
	coordinator := s.sessions.Get(session)

	c, ok := s.upgrade(w, r)
	if !ok {
		return
	}
	unsubscribe := coordinator.Subscribe(func(state player.State) {
		c.sendJSON(PlayerMessage{Type: "state", State: &state})
	})
	defer unsubscribe()

	state := coordinator.State()
	c.sendJSON(PlayerMessage{Type: "state", State: &state})

	go c.writeLoop()
	c.readLoop(func(m []byte) {
		var cmd PlayerCommand
		if err := json.Unmarshal(m, &cmd); err != nil {
			c.sendJSON(PlayerMessage{Type: "error", Error: "invalid command"})
			return
		}
		if reply := s.handlePlayerCommand(coordinator, cmd); reply != nil {
			c.sendJSON(reply)
		}
	})
}

// handlePlayerCommand runs cmd, the returned message is sent back to the
// client that issued it.
func (s *Server) handlePlayerCommand(c *player.Coordinator, cmd PlayerCommand) *PlayerMessage {
	switch cmd.Command {
	case PlayerPlay:
		if cmd.Track == nil {
			if !c.State().CurrentTrack.IsPresent() {
				c.TogglePlay()
			}
			return nil
		}
		if cmd.Track.VideoID == "" {
			return &PlayerMessage{Type: "error", Error: "track without video_id"}
		}
		c.PlayTrack(*cmd.Track)
	case PlayerQueue:
		if err := c.PlayQueue(cmd.Tracks, cmd.Start); err != nil {
			return &PlayerMessage{Type: "error", Error: err.Error()}
		}
	case PlayerToggle:
		c.TogglePlay()
	case PlayerNext:
		c.NextTrack()
	case PlayerPrev:
		c.PrevTrack()
	case PlayerSeek:
		c.HandleProgressChange(cmd.Seconds)
	case PlayerVolume:
		c.HandleVolumeChange(cmd.Level)
	case PlayerMute:
		c.ToggleMute()
	case PlayerAddToLibrary, PlayerRemoveFromLibrary:
		ctx, cancel := s.requestContext()
		defer cancel()
		var notice player.Notice
		if cmd.Command == PlayerAddToLibrary {
			notice = c.AddToLibrary(ctx)
		} else {
			notice = c.RemoveFromLibrary(ctx)
		}
		return &PlayerMessage{Type: "notice", Notice: &notice}
	default:
		return &PlayerMessage{Type: "error", Error: "unknown command " + cmd.Command}
	}
	return nil
}
