package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "messages:chat_id=eq.c1", Topic("messages", Filter{Column: "chat_id", Value: "c1"}))
}

func TestMemoryBrokerFiltersByTopic(t *testing.T) {
	b := NewMemoryBroker()
	f1 := Filter{Column: "chat_id", Value: "c1"}
	f2 := Filter{Column: "chat_id", Value: "c2"}

	var got []string
	unsubscribe, err := b.Subscribe(Topic("messages", f1), func(p []byte) {
		got = append(got, string(p))
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, PublishRow(ctx, b, "messages", f1, map[string]string{"content": "hi"}))
	require.NoError(t, PublishRow(ctx, b, "messages", f2, map[string]string{"content": "other chat"}))
	assert.Equal(t, []string{`{"content":"hi"}`}, got)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, b.Subscribers(Topic("messages", f1)))

	require.NoError(t, PublishRow(ctx, b, "messages", f1, map[string]string{"content": "late"}))
	assert.Len(t, got, 1)
}
