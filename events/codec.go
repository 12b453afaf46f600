package events

import (
	"encoding/json"
	"fmt"

	"github.com/ruteri/reputation-registry/interfaces"
)

// RawEnvelope is an envelope whose event has not been decoded yet.
type RawEnvelope struct {
	Seq   uint64          `json:"seq"`
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

// Decode resolves the concrete event type of a raw envelope.
func (r RawEnvelope) Decode() (Envelope, error) {
	event, err := DecodeEvent(r.Type, r.Event)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Seq: r.Seq, Type: r.Type, Event: event}, nil
}

// DecodeEvent decodes the JSON body of an event of the given type.
func DecodeEvent(eventType string, data []byte) (interfaces.Event, error) {
	var event interfaces.Event
	switch eventType {
	case interfaces.ProgramInitializedType:
		event = &interfaces.ProgramInitialized{}
	case interfaces.ScoreRecordedType:
		event = &interfaces.ScoreRecorded{}
	case interfaces.AuthorityTransferredType:
		event = &interfaces.AuthorityTransferred{}
	case interfaces.AgentAddedType:
		event = &interfaces.AgentAdded{}
	case interfaces.AgentRemovedType:
		event = &interfaces.AgentRemoved{}
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	if err := json.Unmarshal(data, event); err != nil {
		return nil, fmt.Errorf("decode %s: %w", eventType, err)
	}
	return event, nil
}

// UnmarshalJSON decodes an envelope, resolving the event by its type.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw RawEnvelope
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	env, err := raw.Decode()
	if err != nil {
		return err
	}
	*e = env
	return nil
}
