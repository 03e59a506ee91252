package pipeline

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/glean/internal/capture"
)

// Event notifies the coordinator that the observed tree changed. Only Root
// is consumed; ID and At tie log lines for one delivery together.
type Event struct {
	ID   string
	At   time.Time
	Root capture.Node
}

// NewEvent stamps root with the current time and a fresh ULID.
func NewEvent(root capture.Node) Event {
	now := time.Now()
	return Event{ID: newEventID(now), At: now, Root: root}
}

func newEventID(t time.Time) string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// Outcome is what the coordinator did with an event.
type Outcome int

const (
	OutcomeDisabled Outcome = iota
	OutcomeThrottled
	OutcomeProcessed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result reports the work done for one event. Item counts are only
// populated for OutcomeProcessed.
type Result struct {
	EventID string        `json:"event_id"`
	Outcome Outcome       `json:"outcome"`
	Walk    capture.Stats `json:"walk"`

	Saved      int `json:"saved"`      // rows inserted (sync mode)
	Ignored    int `json:"ignored"`    // insert hit an existing dedup_key
	Duplicates int `json:"duplicates"` // suppressed by the dedup cache
	Blank      int `json:"blank"`      // whitespace-only content
	Failed     int `json:"failed"`     // store errors
	Queued     int `json:"queued"`     // handed to the async writer
	Dropped    int `json:"dropped"`    // async queue full
}
