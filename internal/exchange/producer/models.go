package producer

import (
	"time"

	"github.com/google/uuid"
)

type RowResultPayload struct {
	Row        int      `json:"row"`
	Email      string   `json:"email"`
	PlatformID string   `json:"platform_id,omitempty"`
	Status     string   `json:"status"`
	Notes      []string `json:"notes,omitempty"`
}

type RunSummaryPayload struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

type Envelope[T any] struct {
	Kind      string    `json:"kind"` // row_result | run_summary
	MessageID uuid.UUID `json:"message_id"`
	Payload   T         `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // publishing service
}
