package domain

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mitchellh/mapstructure"
)

// PayloadKind names a Payload variant.
type PayloadKind string

const (
	KindSelection PayloadKind = "selection" // Hierarchy steps (module, menu, api...)
	KindFields    PayloadKind = "fields"    // Form steps (basic info, guarantor...)
)

// Payload is the committed output of one step.
// The set of variants is closed: SelectionPayload and FieldsPayload.
type Payload interface {
	Kind() PayloadKind
	isPayload()
}

// SelectionPayload carries the ids chosen at one hierarchy level.
type SelectionPayload struct {
	Selection Selection `json:"ids"`
}

// NewSelectionPayload builds a SelectionPayload from ids.
func NewSelectionPayload(ids ...string) SelectionPayload {
	return SelectionPayload{Selection: NewSelection(ids...)}
}

func (SelectionPayload) Kind() PayloadKind { return KindSelection }
func (SelectionPayload) isPayload()        {}

// FieldsPayload carries free-form form values.
type FieldsPayload struct {
	Values map[string]any `json:"values"`
}

// NewFieldsPayload copies values into a FieldsPayload.
func NewFieldsPayload(values map[string]any) FieldsPayload {
	return FieldsPayload{Values: maps.Clone(values)}
}

func (FieldsPayload) Kind() PayloadKind { return KindFields }
func (FieldsPayload) isPayload()        {}

// Decode maps the values onto a typed struct using mapstructure tags.
// Keys without a matching field are an error, so a form step cannot
// silently carry fields nobody reads.
func (p FieldsPayload) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := dec.Decode(p.Values); err != nil {
		return fmt.Errorf("%w: %w", ErrPayloadKind, err)
	}
	return nil
}

type payloadEnvelope struct {
	Kind PayloadKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload serializes a payload into a {kind, data} envelope.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrPayloadKind)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return json.Marshal(payloadEnvelope{Kind: p.Kind(), Data: data})
}

// DecodePayload reverses EncodePayload.
func DecodePayload(data []byte) (Payload, error) {
	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload envelope: %w", err)
	}

	switch env.Kind {
	case KindSelection:
		var p SelectionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal selection payload: %w", err)
		}
		return p, nil
	case KindFields:
		var p FieldsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fields payload: %w", err)
		}
		if p.Values == nil {
			p.Values = map[string]any{}
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrPayloadKind, env.Kind)
	}
}

// Payloads maps a step id to its committed payload.
type Payloads map[string]Payload

// Clone returns a shallow copy. Payload values are immutable so sharing them is safe.
func (p Payloads) Clone() Payloads {
	out := make(Payloads, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// With returns a copy of p with stepID set to payload.
func (p Payloads) With(stepID string, payload Payload) Payloads {
	out := p.Clone()
	out[stepID] = payload
	return out
}

// Selection returns the selection committed for stepID, if that step is a selection step.
func (p Payloads) Selection(stepID string) (Selection, bool) {
	sp, ok := p[stepID].(SelectionPayload)
	if !ok {
		return Selection{}, false
	}
	return sp.Selection, true
}

// MarshalJSON encodes every payload through its envelope.
func (p Payloads) MarshalJSON() ([]byte, error) {
	raw := make(map[string]json.RawMessage, len(p))
	for id, payload := range p {
		data, err := EncodePayload(payload)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", id, err)
		}
		raw[id] = data
	}
	return json.Marshal(raw)
}

// UnmarshalJSON decodes a map of payload envelopes.
func (p *Payloads) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Payloads, len(raw))
	for id, msg := range raw {
		payload, err := DecodePayload(msg)
		if err != nil {
			return fmt.Errorf("step %s: %w", id, err)
		}
		out[id] = payload
	}
	*p = out
	return nil
}
