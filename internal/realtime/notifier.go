package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis pub/sub channel carrying refresh events between
// API instances.
const EventsChannel = "workly:events"

// Event tells connected clients that something changed and they should
// refetch. It carries no authoritative state.
type Event struct {
	Type   string    `json:"type"`
	TaskID string    `json:"task_id,omitempty"`
	At     time.Time `json:"at"`
}

const (
	EventTasksChanged = "tasks_changed"
	EventBidsChanged  = "bids_changed"
	EventUsersChanged = "users_changed"
)

// Notifier publishes change events. With Redis configured every instance
// (this one included) receives the event via the subscription and relays it
// to its local hub; without Redis the event goes straight to the local hub.
// Either way failures are logged and swallowed: the signal is never required
// for correctness.
type Notifier struct {
	Hub *Hub
	RDB *redis.Client
}

func NewNotifier(hub *Hub, rdb *redis.Client) *Notifier {
	return &Notifier{Hub: hub, RDB: rdb}
}

func (n *Notifier) Emit(eventType, taskID string) {
	ev := Event{Type: eventType, TaskID: taskID, At: time.Now()}
	b, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime: marshal event: %v", err)
		return
	}

	if n.RDB != nil {
		if err := n.RDB.Publish(context.Background(), EventsChannel, b).Err(); err == nil {
			return
		} else {
			log.Printf("realtime: redis publish failed, falling back to local broadcast: %v", err)
		}
	}

	n.Hub.Broadcast(b)
}

// Listen relays events published on the Redis channel into the local hub.
// It returns when ctx is done.
func (n *Notifier) Listen(ctx context.Context) {
	if n.RDB == nil {
		return
	}

	sub := n.RDB.Subscribe(ctx, EventsChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			n.Hub.Broadcast([]byte(msg.Payload))
		}
	}
}
