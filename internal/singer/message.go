// Package singer reads the newline-delimited tagged messages emitted by an
// upstream extraction pipeline and aggregates accepted records into
// row-oriented batches, one per stream.
package singer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Message kinds recognized on the input. Anything else is ignored.
const (
	TypeRecord = "RECORD"
	TypeSchema = "SCHEMA"
	TypeState  = "STATE"
)

// Message is one decoded input line.
type Message struct {
	Type   string         `json:"type"`
	Stream string         `json:"stream"`
	Record map[string]any `json:"record"`
	Schema *Schema        `json:"schema"`
	Value  map[string]any `json:"value"`
}

// Schema carries the declared field set for a stream. It is recorded for
// diagnostics only and never affects aggregation.
type Schema struct {
	Properties map[string]json.RawMessage `json:"properties"`
}

// FieldNames returns the declared field names in sorted-stable form for logging.
func (s *Schema) FieldNames() []string {
	if s == nil || len(s.Properties) == 0 {
		return nil
	}
	out := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// MalformedInputError reports an input line that could not be decoded as a
// tagged message. It aborts the whole run.
type MalformedInputError struct {
	Line string
	Err  error
}

func (e *MalformedInputError) Error() string {
	line := strings.TrimSpace(e.Line)
	const max = 120
	if len(line) > max {
		line = line[:max] + "..."
	}
	return fmt.Sprintf("malformed input line %q: %v", line, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// ParseMessage decodes one input line. Numbers are decoded as json.Number so
// amount columns survive with their textual precision intact.
func ParseMessage(line []byte) (Message, error) {
	var msg Message
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return Message{}, &MalformedInputError{Line: string(line), Err: err}
	}
	if strings.TrimSpace(msg.Type) == "" {
		return Message{}, &MalformedInputError{Line: string(line), Err: fmt.Errorf("missing type field")}
	}
	if msg.Type == TypeRecord && strings.TrimSpace(msg.Stream) == "" {
		return Message{}, &MalformedInputError{Line: string(line), Err: fmt.Errorf("RECORD message missing stream")}
	}
	return msg, nil
}
