package outbox

import (
	"encoding/json"
	"time"
)

// ActorRef identifies the Discord member behind the event.
type ActorRef struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
