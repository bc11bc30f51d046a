package manager

import "github.com/rs/zerolog"

// LogPublisher writes every event as a debug log line.
type LogPublisher struct {
	Logger zerolog.Logger
}

func (p LogPublisher) Publish(e Event) {
	ev := p.Logger.Debug().Str("event", e.Name).Str("job", e.JobID)
	if e.Model != "" {
		ev = ev.Str("model", e.Model)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("manager event")
}
