package manager

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestLogPublisher_WritesEvent(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Logger: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	p.Publish(Event{Name: EventGenerateFailed, JobID: "j1", Model: "m", Fields: map[string]any{"kind": "busy"}})
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if got["event"] != EventGenerateFailed || got["job"] != "j1" || got["model"] != "m" || got["kind"] != "busy" {
		t.Fatalf("log line=%v", got)
	}
}
