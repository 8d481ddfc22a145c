package realtime

import (
	"context"
	"sync"

	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
)

// RedisBroker delivers events through Redis pub/sub so several server
// instances share subscriptions.
type RedisBroker struct {
	client *redis.Client
}

// NewRedisBroker connects to the Redis server at addr.
func NewRedisBroker(addr string) (*RedisBroker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisBroker{client: client}, nil
}

func (r *RedisBroker) Publish(_ context.Context, topic string, payload []byte) error {
	return r.client.Publish(topic, string(payload)).Err()
}

func (r *RedisBroker) Subscribe(topic string, onInsert func([]byte)) (func(), error) {
	ps := r.client.Subscribe(topic)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := ps.Receive(); err != nil {
		ps.Close()
		return nil, err
	}

	ch := ps.Channel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for m := range ch {
			onInsert([]byte(m.Payload))
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				logrus.WithError(err).WithField("topic", topic).Warn("closing redis subscription")
			}
			<-done
		})
	}, nil
}

func (r *RedisBroker) Close() error {
	return r.client.Close()
}
