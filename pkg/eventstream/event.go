package eventstream

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCheckCompleted is emitted after a corpus check succeeds.
	EventTypeCheckCompleted = "overlap.check.completed"
)

// CheckCompletedEvent is a transport-neutral record of one corpus check. The
// submitted text itself is never included, only its length and digest.
type CheckCompletedEvent struct {
	SchemaVersion int         `json:"schema_version"`
	EventType     string      `json:"event_type"`
	EventID       string      `json:"event_id"`
	EmittedAt     time.Time   `json:"emitted_at"`
	RequestID     string      `json:"request_id,omitempty"`
	Query         QueryMeta   `json:"query"`
	AverageScore  float64     `json:"average_score"`
	Matches       []MatchMeta `json:"matches"`
	Timing        TimingMeta  `json:"timing"`
	Corpus        CorpusMeta  `json:"corpus"`
}

// QueryMeta identifies the checked text without carrying it.
type QueryMeta struct {
	Length int    `json:"length"`
	SHA256 string `json:"sha256"`
}

// MatchMeta is one returned result.
type MatchMeta struct {
	DocumentName string  `json:"document_name"`
	Similarity   float64 `json:"similarity"`
}

// TimingMeta captures request lifecycle timing.
type TimingMeta struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}

// CorpusMeta describes the corpus the check ran against.
type CorpusMeta struct {
	Size     int  `json:"size"`
	Fallback bool `json:"fallback"`
}

// NewCheckCompletedEvent fills the envelope fields and digests text.
func NewCheckCompletedEvent(text string, startedAt time.Time) *CheckCompletedEvent {
	sum := sha256.Sum256([]byte(text))
	now := time.Now().UTC()

	return &CheckCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeCheckCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     now,
		Query: QueryMeta{
			Length: len([]rune(text)),
			SHA256: hex.EncodeToString(sum[:]),
		},
		Timing: TimingMeta{
			StartedAt:  startedAt.UTC(),
			DurationMs: now.Sub(startedAt).Milliseconds(),
		},
	}
}
