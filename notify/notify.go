package notify

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/redis/go-redis/v9"
)

// RedisNotifier publishes board change events on a shared pub/sub channel so
// all connected stream instances can refresh their clients.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier creates a notifier publishing on the given channel.
func NewRedisNotifier(client *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

// Announce publishes the event as JSON. Delivery to subscribers is fire and
// forget; pub/sub carries no backlog for disconnected consumers.
func (n *RedisNotifier) Announce(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, data).Err()
}

// QueueNotifier enqueues board change events to a storage queue for
// consumers that must not miss updates while offline.
type QueueNotifier struct {
	queue *azqueue.QueueClient
}

// NewQueueNotifier creates a notifier backed by the given queue client.
func NewQueueNotifier(queue *azqueue.QueueClient) *QueueNotifier {
	return &QueueNotifier{queue: queue}
}

// Announce enqueues the event as JSON.
func (n *QueueNotifier) Announce(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = n.queue.EnqueueMessage(ctx, string(data), nil)
	return err
}

// Announcer is the per-sink announce capability composed by MultiNotifier.
type Announcer interface {
	Announce(ctx context.Context, ev Event) error
}

// MultiNotifier fans an announcement out to every configured sink. The first
// error is returned after all sinks have been attempted.
type MultiNotifier []Announcer

// Announce sends the event to every sink.
func (m MultiNotifier) Announce(ctx context.Context, ev Event) error {
	var firstErr error
	for _, a := range m {
		if err := a.Announce(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
