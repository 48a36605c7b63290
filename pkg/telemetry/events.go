package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a notable occurrence during a configuration pass.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// PassID is the pass the event belongs to.
	PassID string `json:"pass_id,omitempty"`

	// Subject is the plugin id, step name or task the event is about.
	Subject string `json:"subject,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants.
const (
	EventTypePassStarted    = "pass.started"
	EventTypePassCompleted  = "pass.completed"
	EventTypePassFailed     = "pass.failed"
	EventTypePluginApplied  = "plugin.applied"
	EventTypeStepCompleted  = "step.completed"
	EventTypeStepFailed     = "step.failed"
	EventTypeEdgeAdded      = "task.edge_added"
	EventTypeBranchResolved = "branch.resolved"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be delivered.
type EventFilter func(event Event) bool

// EventRecorder keeps the events of a pass and delivers them synchronously
// to subscribers. A pass runs on one goroutine, but watch mode may read the
// recorder from another, so access is locked.
type EventRecorder struct {
	config      EventsConfig
	events      []Event
	subscribers []subscriberEntry
	mu          sync.RWMutex
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventRecorder creates a new recorder with the given configuration.
func NewEventRecorder(cfg EventsConfig) *EventRecorder {
	return &EventRecorder{config: cfg}
}

// Publish records an event and delivers it to matching subscribers. When
// the recorder is full the oldest event is dropped.
func (r *EventRecorder) Publish(event Event) {
	if !r.config.Enabled {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	r.mu.Lock()
	if r.config.MaxEvents > 0 && len(r.events) >= r.config.MaxEvents {
		r.events = r.events[1:]
	}
	r.events = append(r.events, event)
	subs := make([]subscriberEntry, len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.Unlock()

	for _, entry := range subs {
		if entry.filter == nil || entry.filter(event) {
			entry.subscriber(event)
		}
	}
}

// Subscribe registers a subscriber with an optional filter.
func (r *EventRecorder) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, subscriberEntry{subscriber: subscriber, filter: filter})
}

// Events returns a copy of the recorded events, oldest first.
func (r *EventRecorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// EventsForPass returns the recorded events of one pass.
func (r *EventRecorder) EventsForPass(passID string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.PassID == passID {
			out = append(out, e)
		}
	}
	return out
}

// FilterByLevel creates a filter that only allows events at or above the given level.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}
	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows specific event types.
func FilterByType(types ...string) EventFilter {
	typeMap := make(map[string]bool)
	for _, t := range types {
		typeMap[t] = true
	}

	return func(event Event) bool {
		return typeMap[event.Type]
	}
}
