package events

import (
	"time"

	"drugwatch/internal/domain"
)

// NoveltyEvent is emitted when a watch run finds a record its owner has not
// seen. Keep it transport-agnostic so sinks can fan out.
type NoveltyEvent struct {
	WatchID    string        `json:"watchId"`
	Owner      string        `json:"owner"`
	Source     domain.Source `json:"source"`
	RecordKey  string        `json:"recordKey"`
	Title      string        `json:"title"`
	EventTime  time.Time     `json:"eventTime"`
	DetectedAt time.Time     `json:"detectedAt"`
}
