package broadcast

import "github.com/mcoot/clickergame/internal/model"

// Broadcaster pushes events to live connections. Delivery is best effort:
// a connection that cannot keep up misses the event, nothing is retried.
type Broadcaster interface {
	// Publish sends an event to every live connection
	Publish(event model.EventType, payload any)
	// PublishTo sends an event to one connection only
	PublishTo(connID string, event model.EventType, payload any)
}
