package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + job/model and optional fields via key/values.
type Event struct {
	Name   string
	JobID  string
	Model  string
	Fields map[string]any
}

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// Event names.
const (
	EventGenerateStart    = "generate_start"
	EventGenerateDone     = "generate_done"
	EventGenerateFailed   = "generate_failed"
	EventGenerateRejected = "generate_rejected"
)
