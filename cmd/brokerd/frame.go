package main

import (
	"encoding/base64"
	"encoding/json"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// frame is the JSON-over-websocket wire shape this demo front end speaks.
// A real deployment would swap this for whatever binary/text framing its
// clients already use; the core never depends on this type.
type frame struct {
	ID           string            `json:"id"`
	Kind         int               `json:"kind"`
	Target       string            `json:"target"`
	ContentType  uint16            `json:"contentType"`
	HighPriority bool              `json:"highPriority,omitempty"`
	WaitResponse bool              `json:"waitResponse,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Payload      string            `json:"payload,omitempty"` // base64
}

func decodeFrame(raw []byte) (*message.Message, error) {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	payload, err := base64.StdEncoding.DecodeString(f.Payload)
	if err != nil {
		return nil, err
	}
	headers := message.NewHeaders()
	for k, v := range f.Headers {
		headers.Set(k, v)
	}
	return &message.Message{
		ID:           f.ID,
		Kind:         message.Kind(f.Kind),
		Target:       f.Target,
		ContentType:  f.ContentType,
		HighPriority: f.HighPriority,
		WaitResponse: f.WaitResponse,
		Headers:      headers,
		Payload:      payload,
	}, nil
}

func encodeFrame(m *message.Message) ([]byte, error) {
	headers := map[string]string{}
	if m.Headers != nil {
		for _, k := range m.Headers.Keys() {
			v, _ := m.Headers.Get(k)
			headers[k] = v
		}
	}
	f := frame{
		ID:           m.ID,
		Kind:         int(m.Kind),
		Target:       m.Target,
		ContentType:  m.ContentType,
		HighPriority: m.HighPriority,
		WaitResponse: m.WaitResponse,
		Headers:      headers,
		Payload:      base64.StdEncoding.EncodeToString(m.Payload),
	}
	return json.Marshal(f)
}

// resultFrame is sent back to a producer that set WaitResponse, reporting
// the outcome of its own frame instead of a queue delivery.
type resultFrame struct {
	ID     string `json:"id"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

func encodeResultFrame(rf resultFrame) ([]byte, error) {
	return json.Marshal(rf)
}
