// Package realtime delivers newly inserted rows to subscribers.
//
// A subscription names a table and a filter on one column, e.g. messages
// with chat_id equal to some chat. Writers publish every inserted row to
// the topic of its filter value.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

// Filter selects inserted rows by the value of a column.
type Filter struct {
	Column string
	Value  string
}

// Topic returns the channel name rows for table and filter are published on.
func Topic(table string, f Filter) string {
	return fmt.Sprintf("%s:%s=eq.%s", table, f.Column, f.Value)
}

// Broker is a publish/subscribe transport for insert events.
type Broker interface {
	// Publish delivers payload to all subscribers of topic.
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe calls onInsert for every payload published on topic
	// until the returned function is called.
	Subscribe(topic string, onInsert func(payload []byte)) (unsubscribe func(), err error)
	Close() error
}

// PublishRow encodes row as JSON and publishes it.
func PublishRow(ctx context.Context, b Broker, table string, f Filter, row any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return b.Publish(ctx, Topic(table, f), payload)
}
