package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/ordering-backend/pkg/enums"
)

// EnvelopeVersion is written on every new event. Readers reject newer versions.
const EnvelopeVersion = 1

var (
	ErrEnvelopeNoID   = errors.New("envelope has no event id")
	ErrEnvelopeNoData = errors.New("envelope has no data")
)

// ActorRef identifies who produced the event. Webhook-driven events have no actor.
type ActorRef struct {
	UserID uuid.UUID  `json:"userId"`
	Role   enums.Role `json:"role,omitempty"`
}

// PayloadEnvelope is stored in outbox_events.payload and published verbatim
// as the Pub/Sub message body. EventID is the consumer dedupe key.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

func newEnvelope(data any, actor *ActorRef, occurredAt time.Time) (PayloadEnvelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, fmt.Errorf("encode event data: %w", err)
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	return PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       raw,
	}, nil
}

// DecodeEnvelope parses a stored or delivered payload. A missing id, empty
// data or an unknown version is an error; none of them get better on retry.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, error) {
	var env PayloadEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version > EnvelopeVersion {
		return env, fmt.Errorf("envelope version %d not supported", env.Version)
	}
	if env.EventID == "" {
		return env, ErrEnvelopeNoID
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return env, ErrEnvelopeNoData
	}
	return env, nil
}
