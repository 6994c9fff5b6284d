package events

import (
	"context"
	"time"
)

// ImportCompletedType is the event type of ImportCompleted.
const ImportCompletedType = "shopify.import.completed"

// Publisher sends a raw message to a topic. pkg/aws.SNSClient (topic = ARN)
// and KafkaPublisher (topic = name) both implement it.
type Publisher interface {
	Publish(ctx context.Context, topic string, message []byte) error
}

// ImportCompleted is published once a non-dry import run finishes.
type ImportCompleted struct {
	EventType   string         `json:"event_type"`
	StoreID     string         `json:"store_id"`
	Operation   string         `json:"operation"`
	Success     bool           `json:"success"`
	Message     string         `json:"message,omitempty"`
	Imported    map[string]int `json:"imported"`
	Skipped     map[string]int `json:"skipped"`
	Failed      map[string]int `json:"failed"`
	DurationSec float64        `json:"duration_sec"`
	Timestamp   time.Time      `json:"timestamp"`
}
