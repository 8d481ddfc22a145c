package wsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/database"
	"github.com/erikbos/wavesync/database/sqlite"
	"github.com/erikbos/wavesync/player"
	"github.com/erikbos/wavesync/realtime"
	"github.com/erikbos/wavesync/session"
)

type testServer struct {
	url      string
	repo     database.Repository
	auth     *auth.Provider
	sessions *session.Registry
	broker   *realtime.MemoryBroker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo, err := database.New(&database.ConfigFile{
		Sqlite: sqlite.ConfigFile{Filename: filepath.Join(t.TempDir(), "test.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	sessions := session.New(func(userID string) *player.Coordinator {
		return player.New(&player.Options{
			Store:        repo,
			UserID:       userID,
			Go:           func(f func()) { f() },
			PollInterval: time.Hour,
		})
	})
	t.Cleanup(sessions.Close)

	ts := &testServer{
		repo:     repo,
		auth:     auth.New(&auth.Options{Repo: repo}),
		sessions: sessions,
		broker:   realtime.NewMemoryBroker(),
	}
	r := mux.NewRouter()
	New(&Options{
		Auth:     ts.auth,
		Sessions: sessions,
		Chats:    repo,
		Broker:   ts.broker,
	}).RegisterHandlers(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	ts.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return ts
}

func (ts *testServer) signUp(t *testing.T, email string) *auth.Session {
	t.Helper()
	s, err := ts.auth.SignUp(context.Background(), email, "secret123", auth.Client{})
	require.NoError(t, err)
	return s
}

func (ts *testServer) dial(t *testing.T, path string, s *auth.Session) *websocket.Conn {
	t.Helper()
	ws, resp, err := websocket.DefaultDialer.Dial(ts.url+path+"?access_token="+s.AccessToken, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readJSON[T any](t *testing.T, ws *websocket.Conn) T {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var v T
	require.NoError(t, ws.ReadJSON(&v))
	return v
}

var track1 = player.Track{VideoID: "v1", Title: "Город под подошвой", Artist: "Oxxxymiron"}

func TestRejectsMissingToken(t *testing.T) {
	ts := newTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(ts.url+"/ws/player", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWidgetBridge(t *testing.T) {
	ts := newTestServer(t)
	s := ts.signUp(t, "alice@example.com")
	coordinator := ts.sessions.Get(s)
	coordinator.PlayTrack(track1)

	ws := ts.dial(t, "/ws/widget", s)
	require.NoError(t, ws.WriteJSON(WidgetEvent{Event: EventReady}))

	volume := readJSON[WidgetCommand](t, ws)
	assert.Equal(t, CommandSetVolume, volume.Command)
	require.NotNil(t, volume.Level)
	assert.Equal(t, 80, *volume.Level)

	load := readJSON[WidgetCommand](t, ws)
	assert.Equal(t, CommandLoad, load.Command)
	assert.Equal(t, "v1", load.VideoID)

	require.Eventually(t, func() bool { return coordinator.State().PlayerReady }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ws.WriteJSON(WidgetEvent{Event: EventState, Code: player.StatePlaying}))
	require.Eventually(t, func() bool { return coordinator.State().IsPlaying }, 5*time.Second, 10*time.Millisecond)

	// toggling pauses through the widget
	coordinator.TogglePlay()
	assert.Equal(t, CommandPause, readJSON[WidgetCommand](t, ws).Command)

	require.NoError(t, ws.WriteJSON(WidgetEvent{Event: EventProgress, CurrentTime: 12, Duration: 200}))
	require.Eventually(t, func() bool {
		coordinator.Poll()
		st := coordinator.State()
		return st.CurrentTime == 12 && st.Duration == 200
	}, 5*time.Second, 10*time.Millisecond)

	coordinator.HandleProgressChange(30)
	seek := readJSON[WidgetCommand](t, ws)
	assert.Equal(t, CommandSeek, seek.Command)
	assert.Equal(t, 30.0, seek.Seconds)

	ws.Close()
	require.Eventually(t, func() bool { return !coordinator.State().PlayerReady }, 5*time.Second, 10*time.Millisecond)
}

func TestPlayerSocket(t *testing.T) {
	ts := newTestServer(t)
	s := ts.signUp(t, "alice@example.com")

	ws := ts.dial(t, "/ws/player", s)
	initial := readJSON[PlayerMessage](t, ws)
	require.Equal(t, "state", initial.Type)
	assert.False(t, initial.State.CurrentTrack.IsPresent())

	require.NoError(t, ws.WriteJSON(PlayerCommand{Command: PlayerPlay, Track: &track1}))
	for {
		m := readJSON[PlayerMessage](t, ws)
		require.Equal(t, "state", m.Type)
		if current, ok := m.State.CurrentTrack.Get(); ok {
			assert.Equal(t, "v1", current.VideoID)
			break
		}
	}

	require.NoError(t, ws.WriteJSON(PlayerCommand{Command: PlayerAddToLibrary}))
	for {
		m := readJSON[PlayerMessage](t, ws)
		if m.Type == "notice" {
			assert.Equal(t, player.NoticeSuccess, m.Notice.Kind)
			break
		}
	}
	inLibrary, err := ts.repo.IsInLibrary(context.Background(), s.UserID, "v1")
	require.NoError(t, err)
	assert.True(t, inLibrary)

	require.NoError(t, ws.WriteJSON(PlayerCommand{Command: PlayerPlay, Track: &player.Track{Title: "no id"}}))
	for {
		m := readJSON[PlayerMessage](t, ws)
		if m.Type == "error" {
			assert.Contains(t, m.Error, "video_id")
			break
		}
	}
	assert.Equal(t, "v1", ts.sessions.Get(s).State().CurrentTrack.MustGet().VideoID)

	require.NoError(t, ws.WriteJSON(PlayerCommand{Command: "dance"}))
	for {
		m := readJSON[PlayerMessage](t, ws)
		if m.Type == "error" {
			assert.Contains(t, m.Error, "dance")
			break
		}
	}
}

func TestChatSubscription(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.signUp(t, "alice@example.com")
	bob := ts.signUp(t, "bob@example.com")
	carol := ts.signUp(t, "carol@example.com")

	chat, err := ts.repo.CreateDirectChat(context.Background(), alice.UserID, bob.UserID)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(ts.url+"/ws/chats/"+chat.ID+"?access_token="+carol.AccessToken, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ws := ts.dial(t, "/ws/chats/"+chat.ID, bob)
	filter := realtime.Filter{Column: "chat_id", Value: chat.ID}
	topic := realtime.Topic("messages", filter)
	require.Eventually(t, func() bool { return ts.broker.Subscribers(topic) == 1 }, 5*time.Second, 10*time.Millisecond)

	row := map[string]string{"chat_id": chat.ID, "content": "привет"}
	require.NoError(t, realtime.PublishRow(context.Background(), ts.broker, "messages", filter, row))

	got := readJSON[map[string]string](t, ws)
	assert.Equal(t, "привет", got["content"])

	ws.Close()
	require.Eventually(t, func() bool { return ts.broker.Subscribers(topic) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWidgetConnRecordsProgress(t *testing.T) {
	w := &widgetConn{}
	w.setProgress(3, 10)
	assert.Equal(t, 3.0, w.CurrentTime())
	assert.Equal(t, 10.0, w.Duration())

	var _ player.Widget = w
	b, err := json.Marshal(WidgetCommand{Command: CommandPlay})
	require.NoError(t, err)
	assert.JSONEq(t, `{"command":"play"}`, string(b))
}

func TestRequestContextUsesConfiguredTimeout(t *testing.T) {
	s := New(&Options{RequestTimeout: 3 * time.Second})
	ctx, cancel := s.requestContext()
	defer cancel()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(3*time.Second), deadline, time.Second)

	ctx, cancel = New(&Options{}).requestContext()
	defer cancel()
	deadline, ok = ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(defaultCommandTimeout), deadline, time.Second)
}
