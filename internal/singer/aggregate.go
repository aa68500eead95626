package singer

import (
	"bufio"
	"bytes"
	"io"

	"github.com/charmbracelet/log"
)

// Row holds the field values of one accepted record. A field missing from
// the originating record is absent from the row.
type Row map[string]any

// Batch is the row-oriented table of all accepted records for one stream.
// Fields lists every field name ever seen for the stream, in order of first
// appearance.
type Batch struct {
	Stream string
	Fields []string
	Rows   []Row

	fieldSet map[string]struct{}
}

// HasField reports whether any accepted record carried the field.
func (b *Batch) HasField(name string) bool {
	_, ok := b.fieldSet[name]
	return ok
}

// Column returns the values for one field across all rows that carry it,
// in row order.
func (b *Batch) Column(name string) []any {
	var out []any
	for _, row := range b.Rows {
		if v, ok := row[name]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (b *Batch) addRow(record map[string]any) {
	row := make(Row, len(record))
	for name, value := range record {
		if _, seen := b.fieldSet[name]; !seen {
			b.fieldSet[name] = struct{}{}
			b.Fields = append(b.Fields, name)
		}
		row[name] = value
	}
	b.Rows = append(b.Rows, row)
}

// Aggregate consumes the whole input stream and groups accepted RECORD
// messages into one Batch per stream, in order of first appearance.
//
// A record carrying any empty or null field value is dropped whole. When
// recognized is non-empty, records from other streams are ignored. A line
// that cannot be decoded aborts the run with MalformedInputError.
func Aggregate(r io.Reader, recognized []string, logger *log.Logger) ([]*Batch, error) {
	accept := make(map[string]bool, len(recognized))
	for _, s := range recognized {
		accept[s] = true
	}

	var batches []*Batch
	byStream := make(map[string]*Batch)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		msg, err := ParseMessage(line)
		if err != nil {
			return nil, err
		}
		switch msg.Type {
		case TypeRecord:
		case TypeSchema:
			logger.Debug("schema message", "stream", msg.Stream, "fields", msg.Schema.FieldNames())
			continue
		case TypeState:
			logger.Debug("state message received")
			continue
		default:
			continue
		}

		if len(accept) > 0 && !accept[msg.Stream] {
			continue
		}
		if hasEmptyValue(msg.Record) {
			logger.Debug("dropping record with empty field value", "stream", msg.Stream)
			continue
		}

		batch, ok := byStream[msg.Stream]
		if !ok {
			batch = &Batch{Stream: msg.Stream, fieldSet: make(map[string]struct{})}
			byStream[msg.Stream] = batch
			batches = append(batches, batch)
		}
		batch.addRow(msg.Record)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func hasEmptyValue(record map[string]any) bool {
	for _, v := range record {
		if v == nil {
			return true
		}
		if s, ok := v.(string); ok && s == "" {
			return true
		}
	}
	return false
}
