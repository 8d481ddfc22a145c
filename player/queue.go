package player

import "errors"

var ErrEmptyQueue = errors.New("queue has no tracks")

// QueueState is a snapshot of the queue.
type QueueState struct {
	Tracks []Track `json:"tracks"`
	// Index of the current track, -1 when nothing is queued.
	Index int `json:"index"`
}

// Queue is an ordered list of tracks with a position.
type Queue struct {
	tracks []Track
	index  int
}

func NewQueue() *Queue {
	return &Queue{index: -1}
}

// Load replaces the queue, start is the index of the first track to play.
func (q *Queue) Load(tracks []Track, start int) error {
	if len(tracks) == 0 {
		return ErrEmptyQueue
	}
	if start < 0 || start >= len(tracks) {
		return errors.New("start index out of range")
	}
	q.tracks = make([]Track, len(tracks))
	copy(q.tracks, tracks)
	q.index = start
	return nil
}

// Clear removes all tracks.
func (q *Queue) Clear() {
	q.tracks = nil
	q.index = -1
}

// Current returns the track at the queue position.
func (q *Queue) Current() (Track, bool) {
	if q.index < 0 || q.index >= len(q.tracks) {
		return Track{}, false
	}
	return q.tracks[q.index], true
}

// Next advances to the next track. It returns false at the end of the queue.
func (q *Queue) Next() (Track, bool) {
	if q.index < 0 || q.index+1 >= len(q.tracks) {
		return Track{}, false
	}
	q.index++
	return q.tracks[q.index], true
}

// Prev steps back to the previous track. It returns false at the start of the queue.
func (q *Queue) Prev() (Track, bool) {
	if q.index <= 0 || q.index >= len(q.tracks) {
		return Track{}, false
	}
	q.index--
	return q.tracks[q.index], true
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// State returns a copy of the queue.
func (q *Queue) State() QueueState {
	tracks := make([]Track, len(q.tracks))
	copy(tracks, q.tracks)
	return QueueState{Tracks: tracks, Index: q.index}
}
