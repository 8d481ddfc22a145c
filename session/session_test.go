package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/erikbos/wavesync/auth"
	"github.com/erikbos/wavesync/player"
)

func TestOneCoordinatorPerSession(t *testing.T) {
	created := 0
	r := New(func(userID string) *player.Coordinator {
		created++
		return player.New(&player.Options{UserID: userID})
	})
	defer r.Close()

	s1 := &auth.Session{AccessToken: "t1", UserID: "u1"}
	s2 := &auth.Session{AccessToken: "t2", UserID: "u1"}

	main := r.Get(s1)
	mini := r.Get(s1)
	assert.Same(t, main, mini)
	assert.Equal(t, "u1", main.UserID())

	other := r.Get(s2)
	assert.NotSame(t, main, other)
	assert.Equal(t, 2, created)

	r.HandleSessionChange(auth.SignedIn, s1)
	assert.Equal(t, 2, r.Len())

	r.HandleSessionChange(auth.SignedOut, s1)
	_, ok := r.Lookup("t1")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestEvictIdleCoordinators(t *testing.T) {
	r := New(func(userID string) *player.Coordinator {
		return player.New(&player.Options{UserID: userID, Go: func(f func()) { f() }})
	})
	defer r.Close()
	now := time.Now()
	r.now = func() time.Time { return now }

	idle := r.Get(&auth.Session{AccessToken: "t1", UserID: "u1"})
	watched := r.Get(&auth.Session{AccessToken: "t2", UserID: "u2"})
	defer watched.Subscribe(func(player.State) {})()
	r.Get(&auth.Session{AccessToken: "t3", UserID: "u3"})

	now = now.Add(time.Hour)
	// t3 was used recently
	r.Lookup("t3")

	assert.Equal(t, 1, r.Evict(30*time.Minute))
	_, ok := r.Lookup("t1")
	assert.False(t, ok)
	_, ok = r.Lookup("t2")
	assert.True(t, ok)
	_, ok = r.Lookup("t3")
	assert.True(t, ok)

	// an evicted session gets a fresh coordinator on its next request
	assert.NotSame(t, idle, r.Get(&auth.Session{AccessToken: "t1", UserID: "u1"}))
}
