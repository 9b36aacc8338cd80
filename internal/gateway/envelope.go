package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EnvelopeType discriminates wire messages.
type EnvelopeType string

// Client-originated envelope types.
const (
	TypeJoin      EnvelopeType = "join"
	TypeLeave     EnvelopeType = "leave"
	TypeHeartbeat EnvelopeType = "heartbeat"
	TypeCaption   EnvelopeType = "caption"
	TypeAction    EnvelopeType = "action"
)

// Server-originated envelope types.
const (
	TypeWelcome EnvelopeType = "welcome"
	TypeJoined  EnvelopeType = "joined"
	TypeLeft    EnvelopeType = "left"
	TypePong    EnvelopeType = "pong"
)

// Decode failure reasons. The gateway drops both silently; the split
// exists so drop counters can tell malformed JSON from unknown types.
var (
	ErrMissingType      = errors.New("envelope missing type field")
	ErrUnrecognizedType = errors.New("unrecognized envelope type")
)

// Envelope is one wire message. Known routing fields are lifted into
// struct fields; for caption/action every field except type and from
// also stays verbatim in Payload, so relays preserve the original
// bytes even when a payload key shadows a routing name like "id".
type Envelope struct {
	Type       EnvelopeType
	CampaignID string // join request / joined ack
	ID         string // welcome
	Text       string // caption; read-only view, the bytes live in Payload
	From       string // sender attribution on relayed copies
	Payload    map[string]json.RawMessage
}

// relayKeys are the only fields a relay owns: type discriminates and
// from is overwritten with the sender's id. Everything else in a
// caption/action belongs to its author.
var relayKeys = map[string]bool{
	"type": true,
	"from": true,
}

// EncodeCaption builds the wire frame for a server-originated caption,
// exactly as a peer-relayed caption looks minus sender attribution.
func EncodeCaption(text string) ([]byte, error) {
	return Envelope{Type: TypeCaption, Text: text}.encode()
}

// decodeEnvelope parses raw bytes into a valid variant or reports an
// explicit error, never a partially-typed result.
func decodeEnvelope(data []byte) (Envelope, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}

	rawType, ok := fields["type"]
	if !ok {
		return Envelope{}, ErrMissingType
	}
	var typ string
	if err := json.Unmarshal(rawType, &typ); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope type: %w", err)
	}

	env := Envelope{Type: EnvelopeType(typ)}
	switch env.Type {
	case TypeJoin, TypeJoined:
		if raw, ok := fields["campaignId"]; ok {
			if err := json.Unmarshal(raw, &env.CampaignID); err != nil {
				return Envelope{}, fmt.Errorf("parse campaignId: %w", err)
			}
		}
	case TypeLeave, TypeHeartbeat, TypeLeft, TypePong:
		// No payload.
	case TypeWelcome:
		if raw, ok := fields["id"]; ok {
			if err := json.Unmarshal(raw, &env.ID); err != nil {
				return Envelope{}, fmt.Errorf("parse id: %w", err)
			}
		}
	case TypeCaption, TypeAction:
		if raw, ok := fields["text"]; ok {
			if err := json.Unmarshal(raw, &env.Text); err != nil {
				return Envelope{}, fmt.Errorf("parse text: %w", err)
			}
		}
		if raw, ok := fields["from"]; ok {
			if err := json.Unmarshal(raw, &env.From); err != nil {
				return Envelope{}, fmt.Errorf("parse from: %w", err)
			}
		}
		for k, v := range fields {
			if relayKeys[k] {
				continue
			}
			if env.Payload == nil {
				env.Payload = make(map[string]json.RawMessage)
			}
			env.Payload[k] = v
		}
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnrecognizedType, typ)
	}

	return env, nil
}

// encode serializes the envelope back to a single JSON frame,
// preserving payload fields untouched.
func (e Envelope) encode() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(e.Payload)+4)
	for k, v := range e.Payload {
		out[k] = v
	}

	set := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode envelope %s: %w", key, err)
		}
		out[key] = raw
		return nil
	}

	if err := set("type", e.Type); err != nil {
		return nil, err
	}
	if e.From != "" {
		if err := set("from", e.From); err != nil {
			return nil, err
		}
	}

	// Caption/action payloads already carry these keys verbatim when the
	// author set them; only fill them in for server-built envelopes.
	if _, ok := out["campaignId"]; !ok && e.CampaignID != "" {
		if err := set("campaignId", e.CampaignID); err != nil {
			return nil, err
		}
	}
	if _, ok := out["id"]; !ok && e.ID != "" {
		if err := set("id", e.ID); err != nil {
			return nil, err
		}
	}
	if _, ok := out["text"]; !ok && e.Text != "" {
		if err := set("text", e.Text); err != nil {
			return nil, err
		}
	}

	return json.Marshal(out)
}
