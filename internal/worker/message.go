package worker

import (
	"encoding/json"
	"fmt"
)

// DecodeError reports a malformed message body. It is never retried.
type DecodeError struct {
	MessageID string
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode message %s: %v", e.MessageID, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Payload is an inbound message body: {"text": ..., "message": ..., ...}.
// Fields other than text and message are passed through untouched.
type Payload struct {
	Text    string
	Message string
	fields  map[string]json.RawMessage
}

// DecodePayload parses a message body
func DecodePayload(body []byte) (*Payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("body is not a JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("body is null")
	}

	p := &Payload{fields: fields}
	if err := stringField(fields, "text", &p.Text); err != nil {
		return nil, err
	}
	if err := stringField(fields, "message", &p.Message); err != nil {
		return nil, err
	}
	return p, nil
}

func stringField(fields map[string]json.RawMessage, name string, dst *string) error {
	raw, ok := fields[name]
	if !ok || string(raw) == "null" {
		return fmt.Errorf("missing %q field", name)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%q must be a string: %w", name, err)
	}
	return nil
}

// Encode returns the outbound body with annotation appended to message
func (p *Payload) Encode(annotation string) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}

	message, err := json.Marshal(p.Message + annotation)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	out["message"] = message

	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body: %w", err)
	}
	return data, nil
}
