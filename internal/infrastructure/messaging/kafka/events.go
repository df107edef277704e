// Package kafka publishes and consumes screening run lifecycle events.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/turtacn/ChemScreen/internal/domain/run"
	"github.com/turtacn/ChemScreen/pkg/errors"
)

// DefaultTopic is the run-event topic used when none is configured.
const DefaultTopic = "chemscreen.runs"

// EventType enumerates run lifecycle events.
type EventType string

const (
	EventRunStarted   EventType = "run.started"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"
)

// RunEvent is the wire form of one lifecycle notification.
type RunEvent struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"run_id"`
	Positive   string    `json:"positive"`
	Seed       int64     `json:"seed"`
	OccurredAt time.Time `json:"occurred_at"`

	// Summary carries headline numbers for completed runs.
	Summary *RunSummary `json:"summary,omitempty"`

	// Error carries the failure cause for failed runs.
	Error string `json:"error,omitempty"`
}

// RunSummary is the event payload describing a finished run.
type RunSummary struct {
	TotalRows      int                `json:"total_rows"`
	ValidationRows int                `json:"validation_rows"`
	DroppedRows    int                `json:"dropped_rows"`
	ModelAUC       map[string]float64 `json:"model_auc,omitempty"`
	DurationMS     int64              `json:"duration_ms"`
}

// NewRunEvent builds the event for a run in its current state.
func NewRunEvent(eventType EventType, rn *run.Run) RunEvent {
	ev := RunEvent{
		Type:       eventType,
		RunID:      rn.ID.String(),
		Positive:   string(rn.Positive),
		Seed:       rn.Seed,
		OccurredAt: time.Now().UTC(),
	}
	switch eventType {
	case EventRunCompleted:
		summary := &RunSummary{
			TotalRows:      rn.TotalRows,
			ValidationRows: rn.ValidationRows,
			DroppedRows:    rn.DroppedRows,
			DurationMS:     rn.Duration().Milliseconds(),
		}
		if len(rn.Reports) > 0 {
			summary.ModelAUC = make(map[string]float64, len(rn.Reports))
			for name, report := range rn.Reports {
				summary.ModelAUC[name] = report.AUC
			}
		}
		ev.Summary = summary
	case EventRunFailed:
		ev.Error = rn.Error
	}
	return ev
}

// Encode renders the event as JSON.
func (e RunEvent) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "encoding run event")
	}
	return data, nil
}

// DecodeRunEvent parses an event from its wire form.
func DecodeRunEvent(data []byte) (RunEvent, error) {
	var ev RunEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return RunEvent{}, errors.Wrap(err, errors.ErrCodeSerialization, "decoding run event")
	}
	switch ev.Type {
	case EventRunStarted, EventRunCompleted, EventRunFailed:
	default:
		return RunEvent{}, errors.Newf(errors.ErrCodeSerialization, "unknown event type %q", ev.Type)
	}
	return ev, nil
}
