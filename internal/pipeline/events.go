package pipeline

import "time"

// Event types published while a build runs.
const (
	EventStarted          = "pipeline.started"
	EventChapterFetched   = "chapter.fetched"
	EventChapterFailed    = "chapter.failed"
	EventChapterExtracted = "chapter.extracted"
	EventBuildCompleted   = "build.completed"
	EventBuildFailed      = "build.failed"
)

// Event is a progress notification for one publication.
type Event struct {
	Type        string    `json:"type"`
	Publication string    `json:"publication"`
	BuildID     string    `json:"build_id,omitempty"`
	Chapter     int       `json:"chapter,omitempty"` // 1-based
	Detail      string    `json:"detail,omitempty"`
	Path        string    `json:"path,omitempty"`
	Time        time.Time `json:"time"`
}

// EventSink receives events, keyed by publication identifier.
type EventSink interface {
	BroadcastJSON(topic string, v any)
}
