package monitoring

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of performance event being published.
type EventType string

const (
	EventMetricsUpdated     EventType = "metrics_updated"
	EventPerformanceWarning EventType = "performance_warning"
	EventQualityChanged     EventType = "quality_level_changed"
)

// Event is a single entry on the performance event stream. Exactly one of
// the payload pointers is set, matching Type.
type Event struct {
	ID        string               `json:"id"`
	Type      EventType            `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Snapshot  *PerformanceSnapshot `json:"snapshot,omitempty"`
	Warning   *PerformanceWarning  `json:"warning,omitempty"`
	Quality   *QualityChange       `json:"quality,omitempty"`
}

// PerformanceWarning is published when classification drops to Poor or
// Critical.
type PerformanceWarning struct {
	Level      PerformanceLevel `json:"-"`
	LevelName  string           `json:"level"`
	RollingFPS float64          `json:"rolling_fps"`
	TargetFPS  float64          `json:"target_fps"`
	Message    string           `json:"message"`
}

// QualityChange describes a quality level transition made by the adaptive
// controller.
type QualityChange struct {
	FromLevel int    `json:"from_level"`
	ToLevel   int    `json:"to_level"`
	Reason    string `json:"reason"`
}

// Dispatcher fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event and the dispatcher
// counts the drop. Consistent with the local, non-fatal failure model of
// the rest of the package.
type Dispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]chan Event
	bufferSize  int
	dropped     int64
}

// DefaultEventBuffer is the per-subscriber channel depth.
const DefaultEventBuffer = 16

// NewDispatcher creates an event dispatcher. A non-positive bufferSize
// falls back to DefaultEventBuffer.
func NewDispatcher(bufferSize int) *Dispatcher {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBuffer
	}
	return &Dispatcher{
		subscribers: make(map[string]chan Event),
		bufferSize:  bufferSize,
	}
}

// Subscribe registers a new subscriber and returns its id and receive
// channel. The channel is closed on Unsubscribe.
func (d *Dispatcher) Subscribe() (string, <-chan Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, d.bufferSize)
	d.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are
// ignored.
func (d *Dispatcher) Unsubscribe(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ch, ok := d.subscribers[id]; ok {
		delete(d.subscribers, id)
		close(ch)
	}
}

// Publish stamps the event with an id and timestamp (when unset) and
// delivers it to every subscriber that has buffer room.
func (d *Dispatcher) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, ch := range d.subscribers {
		select {
		case ch <- event:
		default:
			d.dropped++
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}

// DroppedEvents returns the monotonic count of events dropped because a
// subscriber buffer was full.
func (d *Dispatcher) DroppedEvents() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dropped
}

// Close unsubscribes everyone.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, ch := range d.subscribers {
		delete(d.subscribers, id)
		close(ch)
	}
}
