package player

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/wavesync/database/model"
)

type fakeStore struct {
	mu       sync.Mutex
	library  map[string]model.TrackInfo
	history  []model.TrackInfo
	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{library: make(map[string]model.TrackInfo)}
}

func (s *fakeStore) AddHistory(_ context.Context, userID string, track model.TrackInfo) (*model.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, track)
	return &model.HistoryEntry{UserID: userID, TrackInfo: track}, nil
}

func (s *fakeStore) AddToLibrary(_ context.Context, userID string, track model.TrackInfo) (*model.LibraryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return nil, err
	}
	key := userID + "/" + track.VideoID
	if _, ok := s.library[key]; ok {
		return nil, model.ErrConflict
	}
	s.library[key] = track
	return &model.LibraryEntry{UserID: userID, TrackInfo: track}, nil
}

func (s *fakeStore) RemoveFromLibrary(_ context.Context, userID, videoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.library, userID+"/"+videoID)
	return nil
}

func (s *fakeStore) IsInLibrary(_ context.Context, userID, videoID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.library[userID+"/"+videoID]
	return ok, nil
}

func (s *fakeStore) historyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

type fakeWidget struct {
	mu       sync.Mutex
	loaded   []string
	volumes  []int
	seeks    []float64
	plays    int
	pauses   int
	current  float64
	duration float64
	reads    int
}

func (w *fakeWidget) Load(videoID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.loaded = append(w.loaded, videoID)
}
func (w *fakeWidget) Play()  { w.mu.Lock(); w.plays++; w.mu.Unlock() }
func (w *fakeWidget) Pause() { w.mu.Lock(); w.pauses++; w.mu.Unlock() }
func (w *fakeWidget) SeekTo(seconds float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seeks = append(w.seeks, seconds)
}
func (w *fakeWidget) SetVolume(level int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.volumes = append(w.volumes, level)
}
func (w *fakeWidget) CurrentTime() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.reads++
	return w.current
}
func (w *fakeWidget) Duration() float64    { w.mu.Lock(); defer w.mu.Unlock(); return w.duration }

func (w *fakeWidget) setTimes(current, duration float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current, w.duration = current, duration
}

func (w *fakeWidget) readCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reads
}

func (w *fakeWidget) lastVolume() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.volumes[len(w.volumes)-1]
}

var (
	song1 = Track{VideoID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Artist: "Rick Astley", Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"}
	song2 = Track{VideoID: "kJQP7kiw5Fk", Title: "Despacito", Artist: "Luis Fonsi"}
	song3 = Track{VideoID: "9bZkp7q19f0", Title: "Gangnam Style", Artist: "PSY"}
)

func newTestCoordinator(t *testing.T, store *fakeStore, userID string) *Coordinator {
	t.Helper()
	c := New(&Options{
		Store:        store,
		UserID:       userID,
		Go:           func(f func()) { f() },
		Rand:         rand.New(rand.NewPCG(1, 2)),
		PollInterval: time.Hour,
	})
	t.Cleanup(c.Close)
	return c
}

func isFallback(track Track) bool {
	for _, f := range DefaultFallbackTracks {
		if f == track {
			return true
		}
	}
	return false
}

func TestPlayTrackRoundTrip(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "u1")

	c.PlayTrack(song1)
	got, ok := c.State().CurrentTrack.Get()
	require.True(t, ok)
	assert.Equal(t, song1, got)
}

func TestSignedOutNeverWritesHistory(t *testing.T) {
	store := newFakeStore()
	store.library["/"+song1.VideoID] = song1.Info(0)
	c := newTestCoordinator(t, store, "")

	for _, track := range []Track{song1, song2, song3} {
		c.PlayTrack(track)
		assert.False(t, c.State().IsInLibrary)
	}
	c.NextTrack()
	assert.False(t, c.State().IsInLibrary)
	assert.Equal(t, 0, store.historyLen())

	n := c.AddToLibrary(context.Background())
	assert.Equal(t, NoticeError, n.Kind)
}

func TestOfflineSkipsHistoryAndLibraryCheck(t *testing.T) {
	store := newFakeStore()
	store.library["u1/"+song1.VideoID] = song1.Info(0)
	c := New(&Options{
		Store:  store,
		UserID: "u1",
		Online: func(context.Context) bool { return false },
		Go:     func(f func()) { f() },
	})
	defer c.Close()

	c.PlayTrack(song1)
	assert.False(t, c.State().IsInLibrary)
	assert.Equal(t, 0, store.historyLen())
}

func TestPlayTrackSignedInRecordsHistoryAndChecksLibrary(t *testing.T) {
	store := newFakeStore()
	store.library["u1/"+song2.VideoID] = song2.Info(0)
	c := newTestCoordinator(t, store, "u1")

	c.PlayTrack(song1)
	assert.False(t, c.State().IsInLibrary)
	c.PlayTrack(song2)
	assert.True(t, c.State().IsInLibrary)
	assert.Equal(t, 2, store.historyLen())
	assert.Equal(t, song1.Thumbnail, store.history[0].Thumbnail)
}

func TestStaleLibraryCheckIsDiscarded(t *testing.T) {
	store := newFakeStore()
	store.library["u1/"+song1.VideoID] = song1.Info(0)

	var pending []func()
	c := New(&Options{
		Store:  store,
		UserID: "u1",
		Go:     func(f func()) { pending = append(pending, f) },
	})
	defer c.Close()

	c.PlayTrack(song1)
	c.PlayTrack(song2)
	// the check for song1 completes last
	for i := len(pending) - 1; i >= 0; i-- {
		pending[i]()
	}
	assert.Equal(t, song2.VideoID, c.State().CurrentTrack.MustGet().VideoID)
	assert.False(t, c.State().IsInLibrary)
}

func TestAddThenRemoveFromLibrary(t *testing.T) {
	store := newFakeStore()
	c := newTestCoordinator(t, store, "u1")
	ctx := context.Background()

	c.PlayTrack(song1)
	n := c.AddToLibrary(ctx)
	assert.Equal(t, NoticeSuccess, n.Kind)
	assert.True(t, c.State().IsInLibrary)

	n = c.AddToLibrary(ctx)
	assert.Equal(t, NoticeInfo, n.Kind)
	assert.True(t, c.State().IsInLibrary)

	n = c.RemoveFromLibrary(ctx)
	assert.Equal(t, NoticeSuccess, n.Kind)
	assert.False(t, c.State().IsInLibrary)

	in, err := store.IsInLibrary(ctx, "u1", song1.VideoID)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestAddToLibraryStoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failNext = errors.New("connection reset")
	c := newTestCoordinator(t, store, "u1")

	c.PlayTrack(song1)
	n := c.AddToLibrary(context.Background())
	assert.True(t, n.IsError())
	assert.False(t, c.State().IsInLibrary)
}

func TestLibraryChangeSeenByAllSubscribers(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "u1")
	c.PlayTrack(song1)

	var mainPlayer, miniPlayer State
	defer c.Subscribe(func(s State) { mainPlayer = s })()
	defer c.Subscribe(func(s State) { miniPlayer = s })()

	c.AddToLibrary(context.Background())
	assert.True(t, mainPlayer.IsInLibrary)
	assert.True(t, miniPlayer.IsInLibrary)
}

func TestTogglePlayWithoutTrackPlaysFallback(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "")
	w := &fakeWidget{}
	c.OnWidgetReady(w)

	c.TogglePlay()
	track, ok := c.State().CurrentTrack.Get()
	require.True(t, ok)
	assert.True(t, isFallback(track))
	assert.Equal(t, []string{track.VideoID}, w.loaded)
	assert.False(t, c.State().IsPlaying)

	c.OnWidgetStateChange(StatePlaying)
	assert.True(t, c.State().IsPlaying)

	c.TogglePlay()
	assert.Equal(t, 1, w.pauses)
	c.OnWidgetStateChange(2)
	c.TogglePlay()
	assert.Equal(t, 1, w.plays)
}

func TestEndedAdvancesWithinCallback(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "")
	w := &fakeWidget{}
	c.OnWidgetReady(w)

	require.NoError(t, c.PlayQueue([]Track{song1, song2}, 0))
	c.OnWidgetStateChange(StateEnded)
	assert.Equal(t, song2, c.State().CurrentTrack.MustGet())
	assert.Equal(t, 1, c.State().Queue.Index)

	// end of queue falls back
	c.OnWidgetStateChange(StateEnded)
	track := c.State().CurrentTrack.MustGet()
	assert.True(t, isFallback(track))
	assert.Equal(t, -1, c.State().Queue.Index)
	assert.Equal(t, track.VideoID, w.loaded[len(w.loaded)-1])
}

func TestQueueTraversal(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "")

	require.NoError(t, c.PlayQueue([]Track{song1, song2, song3}, 1))
	assert.Equal(t, song2, c.State().CurrentTrack.MustGet())

	c.NextTrack()
	assert.Equal(t, song3, c.State().CurrentTrack.MustGet())
	c.PrevTrack()
	c.PrevTrack()
	assert.Equal(t, song1, c.State().CurrentTrack.MustGet())

	c.PrevTrack()
	assert.True(t, isFallback(c.State().CurrentTrack.MustGet()))

	assert.ErrorIs(t, c.PlayQueue(nil, 0), ErrEmptyQueue)

	require.NoError(t, c.PlayQueue([]Track{song1, song2}, 0))
	c.PlayTrack(song3)
	assert.Empty(t, c.State().Queue.Tracks)
}

func TestVolumeAndMute(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "")

	// dropped before the widget is ready
	c.HandleVolumeChange(30)
	c.ToggleMute()
	assert.Equal(t, defaultVolume, c.State().Volume)
	assert.False(t, c.State().IsMuted)

	w := &fakeWidget{}
	c.OnWidgetReady(w)
	assert.Equal(t, defaultVolume, w.lastVolume())

	c.HandleVolumeChange(0)
	assert.True(t, c.State().IsMuted)

	c.HandleVolumeChange(35)
	assert.False(t, c.State().IsMuted)
	assert.Equal(t, 35, w.lastVolume())

	c.ToggleMute()
	assert.True(t, c.State().IsMuted)
	assert.Equal(t, 0, w.lastVolume())
	c.ToggleMute()
	assert.False(t, c.State().IsMuted)
	assert.Equal(t, 35, c.State().Volume)
	assert.Equal(t, 35, w.lastVolume())

	// unmuting after a zero volume restores the last non-zero volume
	c.HandleVolumeChange(0)
	c.ToggleMute()
	assert.Equal(t, 35, c.State().Volume)

	c.HandleVolumeChange(250)
	assert.Equal(t, 100, c.State().Volume)
}

func TestProgressClampedToDuration(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "")
	c.PlayTrack(song1)

	c.HandleProgressChange(42)
	assert.Equal(t, 0.0, c.State().CurrentTime)

	w := &fakeWidget{current: 250, duration: 212}
	c.OnWidgetReady(w)
	c.Poll()
	s := c.State()
	assert.Equal(t, 212.0, s.Duration)
	assert.Equal(t, 212.0, s.CurrentTime)

	// unknown duration is not a zero length track
	w.mu.Lock()
	w.current, w.duration = 12, 0
	w.mu.Unlock()
	c.Poll()
	assert.Equal(t, 12.0, c.State().CurrentTime)

	w.mu.Lock()
	w.duration = 100
	w.mu.Unlock()
	c.Poll()
	c.HandleProgressChange(500)
	assert.Equal(t, 100.0, c.State().CurrentTime)
	assert.Equal(t, []float64{100}, w.seeks)
}

func TestWidgetClosed(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "")
	w := &fakeWidget{}
	c.OnWidgetReady(w)
	c.OnWidgetClosed(&fakeWidget{})
	assert.True(t, c.State().PlayerReady)

	c.OnWidgetClosed(w)
	assert.False(t, c.State().PlayerReady)
}

func TestSetUserRechecksLibrary(t *testing.T) {
	store := newFakeStore()
	store.library["u1/"+song1.VideoID] = song1.Info(0)
	c := newTestCoordinator(t, store, "")

	c.PlayTrack(song1)
	assert.False(t, c.State().IsInLibrary)
	c.SetUser("u1")
	assert.True(t, c.State().IsInLibrary)
	c.SetUser("")
	assert.False(t, c.State().IsInLibrary)
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:00", FormatTime(0))
	assert.Equal(t, "3:05", FormatTime(185.9))
	assert.Equal(t, "61:01", FormatTime(3661))
	assert.Equal(t, "0:00", FormatTime(-3))
}

func TestTrackInfo(t *testing.T) {
	info := song1.Info(185)
	assert.Equal(t, "3:05", info.Duration)
	assert.Equal(t, song1, FromInfo(info))
	assert.Empty(t, song2.Info(0).Duration)
}

func TestSlowSubscriberNeverSeesOlderState(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "u1")
	c.PlayTrack(song1)
	w := &fakeWidget{current: 10, duration: 100}
	c.OnWidgetReady(w)

	entered := make(chan uint64)
	release := make(chan struct{})
	var mu sync.Mutex
	var last State
	blocked := false
	defer c.Subscribe(func(s State) {
		mu.Lock()
		first := !blocked && s.CurrentTime == 10
		blocked = blocked || first
		mu.Unlock()
		if first {
			entered <- s.Version
			<-release
		}
		mu.Lock()
		last = s
		mu.Unlock()
	})()

	polled := make(chan struct{})
	go func() {
		c.Poll()
		close(polled)
	}()
	pollVersion := <-entered

	added := make(chan Notice)
	go func() { added <- c.AddToLibrary(context.Background()) }()
	// the library update has been snapshotted while the poll delivery is stuck
	require.Eventually(t, func() bool {
		s := c.State()
		return s.IsInLibrary && s.Version > pollVersion
	}, time.Second, time.Millisecond)

	close(release)
	<-polled
	assert.Equal(t, NoticeSuccess, (<-added).Kind)

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, last.IsInLibrary)
	assert.Equal(t, 10.0, last.CurrentTime)
	assert.Equal(t, c.State().Version, last.Version)
}

// trackSwitchingWidget changes the track the first time its time is read.
type trackSwitchingWidget struct {
	*fakeWidget
	once     sync.Once
	onSwitch func()
}

func (w *trackSwitchingWidget) CurrentTime() float64 {
	w.once.Do(w.onSwitch)
	return w.fakeWidget.CurrentTime()
}

func TestPollDuringTrackChangeKeepsReset(t *testing.T) {
	c := newTestCoordinator(t, newFakeStore(), "u1")
	c.PlayTrack(song1)
	w := &trackSwitchingWidget{fakeWidget: &fakeWidget{current: 90, duration: 100}}
	w.onSwitch = func() { c.PlayTrack(song2) }
	c.OnWidgetReady(w)

	c.Poll()

	s := c.State()
	assert.Equal(t, song2, s.CurrentTrack.MustGet())
	assert.Equal(t, 0.0, s.CurrentTime)
	assert.Equal(t, 0.0, s.Duration)

	// the next poll belongs to the new track
	c.Poll()
	assert.Equal(t, 90.0, c.State().CurrentTime)
}

func TestPollingLoopWithGoroutineExecutor(t *testing.T) {
	store := newFakeStore()
	c := New(&Options{Store: store, UserID: "u1", PollInterval: 5 * time.Millisecond})

	var mu sync.Mutex
	var last State
	defer c.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		last = s
	})()
	lastSeen := func() State {
		mu.Lock()
		defer mu.Unlock()
		return last
	}

	c.PlayTrack(song1)
	require.Eventually(t, func() bool { return store.historyLen() == 1 }, time.Second, time.Millisecond)

	w1 := &fakeWidget{current: 42, duration: 200}
	c.OnWidgetReady(w1)
	require.Eventually(t, func() bool {
		s := lastSeen()
		return s.CurrentTime == 42 && s.Duration == 200
	}, time.Second, time.Millisecond)

	// a second ready widget takes over polling
	w2 := &fakeWidget{current: 7, duration: 200}
	c.OnWidgetReady(w2)
	require.Eventually(t, func() bool { return lastSeen().CurrentTime == 7 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	reads := w1.readCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, reads, w1.readCount())

	c.OnWidgetClosed(w2)
	time.Sleep(20 * time.Millisecond)
	reads = w2.readCount()
	w2.setTimes(9, 200)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, reads, w2.readCount())
	assert.Equal(t, 7.0, c.State().CurrentTime)

	w3 := &fakeWidget{current: 3, duration: 200}
	c.OnWidgetReady(w3)
	require.Eventually(t, func() bool { return w3.readCount() > 0 }, time.Second, time.Millisecond)
	c.Close()
	time.Sleep(20 * time.Millisecond)
	reads = w3.readCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, reads, w3.readCount())
	assert.False(t, c.State().PlayerReady)
}
