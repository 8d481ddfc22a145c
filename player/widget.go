package player

// Widget is the embedded media player a coordinator controls. Commands
// are best effort, getters return the last known values.
type Widget interface {
	// Load replaces the video and starts playing it.
	Load(videoID string)
	Play()
	Pause()
	SeekTo(seconds float64)
	// SetVolume sets the volume, 0-100.
	SetVolume(level int)
	CurrentTime() float64
	Duration() float64
}

// Widget state codes, codes not listed here mean paused or buffering.
const (
	StateEnded   = 0
	StatePlaying = 1
)
