package player

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"github.com/erikbos/wavesync/database/model"
)

const (
	defaultVolume       = 80
	defaultPollInterval = time.Second
	defaultTimeout      = 10 * time.Second
)

// State is a snapshot of the playback state.
type State struct {
	CurrentTrack mo.Option[Track] `json:"current_track"`
	IsPlaying    bool             `json:"is_playing"`
	// CurrentTime and Duration are in seconds, a Duration of 0 means unknown.
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Volume      int     `json:"volume"`
	IsMuted     bool    `json:"is_muted"`
	// IsInLibrary is only true with a current track and a signed in user.
	IsInLibrary bool       `json:"is_in_library"`
	PlayerReady bool       `json:"player_ready"`
	Queue       QueueState `json:"queue"`
	// Version increases with every change, a subscriber never receives a
	// lower version after a higher one.
	Version uint64 `json:"version"`
}

// Store is the part of the repository the coordinator writes to.
type Store interface {
	AddHistory(ctx context.Context, userID string, track model.TrackInfo) (*model.HistoryEntry, error)
	AddToLibrary(ctx context.Context, userID string, track model.TrackInfo) (*model.LibraryEntry, error)
	RemoveFromLibrary(ctx context.Context, userID, videoID string) error
	IsInLibrary(ctx context.Context, userID, videoID string) (bool, error)
}

// OnlineFunc reports whether the remote store can be reached.
type OnlineFunc func(ctx context.Context) bool

type Options struct {
	Store Store
	// UserID of the signed in user, empty when signed out.
	UserID string
	Online OnlineFunc
	// Go runs fire-and-forget work, defaults to a new goroutine.
	Go func(func())
	// Rand picks fallback tracks, defaults to the global source.
	Rand *rand.Rand
	// PollInterval is the widget progress poll cadence.
	PollInterval time.Duration
	// RequestTimeout bounds every store call.
	RequestTimeout time.Duration
	FallbackTracks []Track
	Logger         logrus.FieldLogger
}

// Coordinator is the single source of truth for what is playing and how.
// All methods are safe for concurrent use. Store calls are never made
// while holding the state lock.
type Coordinator struct {
	store          Store
	online         OnlineFunc
	goFn           func(func())
	intn           func(int) int
	pollInterval   time.Duration
	requestTimeout time.Duration
	fallback       []Track
	log            logrus.FieldLogger

	mu     sync.Mutex
	state  State
	userID string
	queue  *Queue
	widget Widget
	// lastVolume is the last non-zero volume, restored on unmute.
	lastVolume int
	// generation increments on every track change, library checks of
	// older generations are discarded.
	generation  uint64
	version     uint64
	subscribers map[int]*subscriber
	nextSubID   int
	stopPoll    chan struct{}
	closed      bool
}

func New(o *Options) *Coordinator {
	c := &Coordinator{
		store:          o.Store,
		online:         o.Online,
		goFn:           o.Go,
		pollInterval:   o.PollInterval,
		requestTimeout: o.RequestTimeout,
		fallback:       o.FallbackTracks,
		log:            o.Logger,
		userID:         o.UserID,
		queue:          NewQueue(),
		lastVolume:     defaultVolume,
		subscribers:    make(map[int]*subscriber),
	}
	c.state.Volume = defaultVolume
	c.state.Queue = c.queue.State()
	if c.online == nil {
		c.online = func(context.Context) bool { return true }
	}
	if c.goFn == nil {
		c.goFn = func(f func()) { go f() }
	}
	c.intn = rand.IntN
	if o.Rand != nil {
		c.intn = o.Rand.IntN
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = defaultTimeout
	}
	if len(c.fallback) == 0 {
		c.fallback = DefaultFallbackTracks
	}
	if c.log == nil {
		c.log = logrus.StandardLogger()
	}
	return c
}

// State returns a snapshot of the playback state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Coordinator) snapshotLocked() State {
	s := c.state
	s.Queue = c.queue.State()
	s.Version = c.version
	return s
}

// subscriber serializes deliveries to fn and drops snapshots older than
// the last one delivered.
type subscriber struct {
	mu   sync.Mutex
	fn   func(State)
	last uint64
}

func (s *subscriber) deliver(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Version <= s.last {
		return
	}
	s.last = state.Version
	s.fn(state)
}

// Subscribe registers fn to receive a snapshot after every change. Calls
// to fn are never concurrent and arrive in version order. fn may read
// State but must not change the coordinator.
func (c *Coordinator) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = &subscriber{fn: fn}
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	c.version++
	s := c.snapshotLocked()
	subscribers := lo.Values(c.subscribers)
	c.mu.Unlock()

	for _, sub := range subscribers {
		sub.deliver(s)
	}
}

// Idle reports whether no subscriber and no widget is attached.
func (c *Coordinator) Idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscribers) == 0 && c.widget == nil
}

// UserID returns the signed in user, empty when signed out.
func (c *Coordinator) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// SetUser changes the signed in user and rechecks library membership.
func (c *Coordinator) SetUser(userID string) {
	c.mu.Lock()
	if c.userID == userID {
		c.mu.Unlock()
		return
	}
	c.userID = userID
	c.generation++
	track, hasTrack := c.state.CurrentTrack.Get()
	check := c.librarySyncLocked(track, hasTrack)
	c.mu.Unlock()

	c.notify()
	if check != nil {
		c.goFn(check)
	}
}

// PlayTrack makes track current and clears the queue.
func (c *Coordinator) PlayTrack(track Track) {
	c.mu.Lock()
	c.queue.Clear()
	work := c.changeTrackLocked(track)
	c.mu.Unlock()

	c.afterTrackChange(work)
}

// PlayQueue loads tracks as the queue and starts playing tracks[start].
func (c *Coordinator) PlayQueue(tracks []Track, start int) error {
	c.mu.Lock()
	if err := c.queue.Load(tracks, start); err != nil {
		c.mu.Unlock()
		return err
	}
	track, _ := c.queue.Current()
	work := c.changeTrackLocked(track)
	c.mu.Unlock()

	c.afterTrackChange(work)
	return nil
}

// TogglePlay starts a fallback track when nothing is current, otherwise it
// asks the widget to pause or resume.
func (c *Coordinator) TogglePlay() {
	c.mu.Lock()
	if !c.state.CurrentTrack.IsPresent() {
		work := c.changeTrackLocked(c.pickFallbackLocked())
		c.mu.Unlock()
		c.afterTrackChange(work)
		return
	}
	w, ready := c.widget, c.state.PlayerReady
	playing := c.state.IsPlaying
	c.mu.Unlock()

	if !ready || w == nil {
		return
	}
	if playing {
		w.Pause()
	} else {
		w.Play()
	}
}

// NextTrack advances the queue, or plays a fallback track when the queue
// has no next track.
func (c *Coordinator) NextTrack() {
	c.mu.Lock()
	work := c.advanceLocked()
	c.mu.Unlock()

	c.afterTrackChange(work)
}

func (c *Coordinator) advanceLocked() trackChange {
	if track, ok := c.queue.Next(); ok {
		return c.changeTrackLocked(track)
	}
	c.queue.Clear()
	return c.changeTrackLocked(c.pickFallbackLocked())
}

// PrevTrack steps back in the queue, or plays a fallback track when the
// queue has no previous track.
func (c *Coordinator) PrevTrack() {
	c.mu.Lock()
	var work trackChange
	if track, ok := c.queue.Prev(); ok {
		work = c.changeTrackLocked(track)
	} else {
		c.queue.Clear()
		work = c.changeTrackLocked(c.pickFallbackLocked())
	}
	c.mu.Unlock()

	c.afterTrackChange(work)
}

func (c *Coordinator) pickFallbackLocked() Track {
	return c.fallback[c.intn(len(c.fallback))]
}

// trackChange is the work left to do after a track change, outside the lock.
type trackChange struct {
	track  Track
	widget Widget
	// history and library run through the executor, nil when not needed.
	history func()
	library func()
}

func (c *Coordinator) changeTrackLocked(track Track) trackChange {
	c.generation++
	c.state.CurrentTrack = mo.Some(track)
	c.state.CurrentTime = 0
	c.state.Duration = 0
	c.state.IsPlaying = false

	work := trackChange{track: track}
	if c.state.PlayerReady {
		work.widget = c.widget
	}
	if userID := c.userID; userID != "" {
		work.history = func() { c.recordHistory(userID, track) }
	}
	work.library = c.librarySyncLocked(track, true)
	return work
}

func (c *Coordinator) afterTrackChange(work trackChange) {
	if work.widget != nil {
		work.widget.Load(work.track.VideoID)
	}
	c.notify()
	if work.history != nil {
		c.goFn(work.history)
	}
	if work.library != nil {
		c.goFn(work.library)
	}
}

func (c *Coordinator) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.requestTimeout)
}

func (c *Coordinator) recordHistory(userID string, track Track) {
	ctx, cancel := c.storeContext()
	defer cancel()

	if !c.online(ctx) {
		return
	}
	if _, err := c.store.AddHistory(ctx, userID, track.Info(0)); err != nil {
		c.log.WithError(err).WithField("videoid", track.VideoID).Warn("Error adding to listening history")
	}
}

// librarySyncLocked resets IsInLibrary and returns the check to run, or
// nil when signed out.
func (c *Coordinator) librarySyncLocked(track Track, hasTrack bool) func() {
	c.state.IsInLibrary = false
	userID := c.userID
	if userID == "" || !hasTrack {
		return nil
	}
	generation := c.generation
	return func() {
		ctx, cancel := c.storeContext()
		defer cancel()

		if !c.online(ctx) {
			return
		}
		inLibrary, err := c.store.IsInLibrary(ctx, userID, track.VideoID)
		if err != nil {
			c.log.WithError(err).WithField("videoid", track.VideoID).Warn("Error checking library")
			return
		}

		c.mu.Lock()
		if c.generation != generation {
			c.mu.Unlock()
			return
		}
		c.state.IsInLibrary = inLibrary
		c.mu.Unlock()
		c.notify()
	}
}

// HandleProgressChange seeks to seconds. Dropped until the widget is ready.
func (c *Coordinator) HandleProgressChange(seconds float64) {
	c.mu.Lock()
	w := c.widget
	if !c.state.PlayerReady || w == nil {
		c.mu.Unlock()
		return
	}
	seconds = max(0, seconds)
	if c.state.Duration > 0 {
		seconds = min(seconds, c.state.Duration)
	}
	c.state.CurrentTime = seconds
	c.mu.Unlock()

	w.SeekTo(seconds)
	c.notify()
}

// HandleVolumeChange sets the volume, a level of 0 mutes. Dropped until
// the widget is ready.
func (c *Coordinator) HandleVolumeChange(level int) {
	level = lo.Clamp(level, 0, 100)

	c.mu.Lock()
	w := c.widget
	if !c.state.PlayerReady || w == nil {
		c.mu.Unlock()
		return
	}
	c.state.Volume = level
	c.state.IsMuted = level == 0
	if level > 0 {
		c.lastVolume = level
	}
	c.mu.Unlock()

	w.SetVolume(level)
	c.notify()
}

// ToggleMute switches between silence and the last non-zero volume.
// Dropped until the widget is ready.
func (c *Coordinator) ToggleMute() {
	c.mu.Lock()
	w := c.widget
	if !c.state.PlayerReady || w == nil {
		c.mu.Unlock()
		return
	}
	var level int
	if c.state.IsMuted {
		level = c.lastVolume
		c.state.Volume = level
		c.state.IsMuted = false
	} else {
		c.state.IsMuted = true
	}
	c.mu.Unlock()

	w.SetVolume(level)
	c.notify()
}

// AddToLibrary saves the current track in the library of the signed in user.
func (c *Coordinator) AddToLibrary(ctx context.Context) Notice {
	c.mu.Lock()
	track, hasTrack := c.state.CurrentTrack.Get()
	userID := c.userID
	duration := c.state.Duration
	c.mu.Unlock()

	if userID == "" || !hasTrack {
		return Notice{Kind: NoticeError, Title: "Error", Description: "Sign in required"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	_, err := c.store.AddToLibrary(ctx, userID, track.Info(duration))
	switch {
	case err == nil:
		c.SetInLibrary(track.VideoID, true)
		return Notice{Kind: NoticeSuccess, Title: "Added to library", Description: track.Title}
	case errors.Is(err, model.ErrConflict):
		c.SetInLibrary(track.VideoID, true)
		return Notice{Kind: NoticeInfo, Title: "Track already in library", Description: track.Title}
	default:
		c.log.WithError(err).WithField("videoid", track.VideoID).Warn("Error adding to library")
		return Notice{Kind: NoticeError, Title: "Error", Description: "Could not add to library"}
	}
}

// RemoveFromLibrary deletes the current track from the library of the
// signed in user.
func (c *Coordinator) RemoveFromLibrary(ctx context.Context) Notice {
	c.mu.Lock()
	track, hasTrack := c.state.CurrentTrack.Get()
	userID := c.userID
	c.mu.Unlock()

	if userID == "" || !hasTrack {
		return Notice{Kind: NoticeError, Title: "Error", Description: "Sign in required"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()
	if err := c.store.RemoveFromLibrary(ctx, userID, track.VideoID); err != nil {
		c.log.WithError(err).WithField("videoid", track.VideoID).Warn("Error removing from library")
		return Notice{Kind: NoticeError, Title: "Error", Description: "Could not remove from library"}
	}
	c.SetInLibrary(track.VideoID, false)
	return Notice{Kind: NoticeSuccess, Title: "Removed from library", Description: track.Title}
}

// SetInLibrary updates IsInLibrary if videoID is still the current track,
// used when the library is changed outside of the coordinator.
func (c *Coordinator) SetInLibrary(videoID string, inLibrary bool) {
	c.mu.Lock()
	current, ok := c.state.CurrentTrack.Get()
	if !ok || current.VideoID != videoID || c.userID == "" {
		c.mu.Unlock()
		return
	}
	// a pending check could overwrite this with an older answer
	c.generation++
	c.state.IsInLibrary = inLibrary
	c.mu.Unlock()
	c.notify()
}

// OnWidgetReady binds the widget, applies the configured volume and
// starts progress polling.
func (c *Coordinator) OnWidgetReady(w Widget) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.widget = w
	c.state.PlayerReady = true
	volume := c.state.Volume
	if c.state.IsMuted {
		volume = 0
	}
	track, hasTrack := c.state.CurrentTrack.Get()
	c.stopPollLocked()
	stop := make(chan struct{})
	c.stopPoll = stop
	c.mu.Unlock()

	w.SetVolume(volume)
	if hasTrack {
		w.Load(track.VideoID)
	}
	go c.pollLoop(stop)
	c.notify()
}

// OnWidgetClosed unbinds w if it is the current widget.
func (c *Coordinator) OnWidgetClosed(w Widget) {
	c.mu.Lock()
	if c.widget != w {
		c.mu.Unlock()
		return
	}
	c.widget = nil
	c.state.PlayerReady = false
	c.state.IsPlaying = false
	c.stopPollLocked()
	c.mu.Unlock()
	c.notify()
}

// OnWidgetStateChange records the widget state, the end of a track
// advances to the next one before returning.
func (c *Coordinator) OnWidgetStateChange(code int) {
	c.mu.Lock()
	c.state.IsPlaying = code == StatePlaying
	if code != StateEnded {
		c.mu.Unlock()
		c.notify()
		return
	}
	work := c.advanceLocked()
	c.mu.Unlock()

	c.afterTrackChange(work)
}

func (c *Coordinator) pollLoop(stop chan struct{}) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.Poll()
		}
	}
}

// Poll reads current time and duration from the widget. Reported times
// are clamped to the duration once it is known.
func (c *Coordinator) Poll() {
	c.mu.Lock()
	w := c.widget
	ready := c.state.PlayerReady
	generation := c.generation
	c.mu.Unlock()
	if !ready || w == nil {
		return
	}

	current := max(0, w.CurrentTime())
	duration := max(0, w.Duration())
	if duration > 0 {
		current = min(current, duration)
	}

	c.mu.Lock()
	// the track changed while the widget was read, its times are stale
	if c.widget != w || c.generation != generation ||
		(c.state.CurrentTime == current && c.state.Duration == duration) {
		c.mu.Unlock()
		return
	}
	c.state.CurrentTime = current
	c.state.Duration = duration
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) stopPollLocked() {
	if c.stopPoll != nil {
		close(c.stopPoll)
		c.stopPoll = nil
	}
}

// Close stops progress polling and drops all subscribers.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopPollLocked()
	c.widget = nil
	c.state.PlayerReady = false
	c.subscribers = make(map[int]*subscriber)
}
