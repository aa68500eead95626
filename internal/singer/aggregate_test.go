package singer_test

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/pipewise/target-intacct/internal/singer"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestAggregateGroupsByStream(t *testing.T) {
	input := strings.Join([]string{
		`{"type": "SCHEMA", "stream": "payouts", "schema": {"properties": {"payout_id": {"type": "string"}}}}`,
		`{"type": "RECORD", "stream": "payouts", "record": {"payout_id": "po_1", "payout_amount": 150.0}}`,
		`{"type": "RECORD", "stream": "transactions", "record": {"id": "tx_1", "payout_id": "po_1"}}`,
		`{"type": "RECORD", "stream": "payouts", "record": {"payout_id": "po_2", "payout_amount": -20.0}}`,
		`{"type": "STATE", "value": {"bookmarks": {}}}`,
	}, "\n")

	batches, err := singer.Aggregate(strings.NewReader(input), nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batches=%d want=2", len(batches))
	}
	if batches[0].Stream != "payouts" || batches[1].Stream != "transactions" {
		t.Fatalf("stream order: %q, %q", batches[0].Stream, batches[1].Stream)
	}
	if len(batches[0].Rows) != 2 {
		t.Fatalf("payouts rows=%d want=2", len(batches[0].Rows))
	}
	if got := batches[0].Rows[1]["payout_id"]; got != "po_2" {
		t.Fatalf("row[1].payout_id=%v", got)
	}
}

func TestAggregateDropsRecordsWithEmptyValues(t *testing.T) {
	input := strings.Join([]string{
		`{"type": "RECORD", "stream": "rates", "record": {"employeeid": "10", "billingrate": ""}}`,
		`{"type": "RECORD", "stream": "rates", "record": {"employeeid": "11", "billingrate": null}}`,
		`{"type": "RECORD", "stream": "rates", "record": {"employeeid": "12", "billingrate": "55"}}`,
	}, "\n")

	batches, err := singer.Aggregate(strings.NewReader(input), nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 1 || len(batches[0].Rows) != 1 {
		t.Fatalf("expected 1 batch with 1 row, got %#v", batches)
	}
	for _, row := range batches[0].Rows {
		for name, v := range row {
			if v == nil || v == "" {
				t.Fatalf("empty cell survived: %s", name)
			}
		}
	}
}

func TestAggregateColumnLengths(t *testing.T) {
	input := strings.Join([]string{
		`{"type": "RECORD", "stream": "s", "record": {"a": "1", "b": "x"}}`,
		`{"type": "RECORD", "stream": "s", "record": {"a": "2", "b": "y"}}`,
		`{"type": "RECORD", "stream": "s", "record": {"a": "3", "b": "z", "c": "late"}}`,
	}, "\n")

	batches, err := singer.Aggregate(strings.NewReader(input), nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b := batches[0]
	if got := len(b.Column("a")); got != len(b.Rows) {
		t.Fatalf("column a len=%d rows=%d", got, len(b.Rows))
	}
	if got := len(b.Column("b")); got != len(b.Rows) {
		t.Fatalf("column b len=%d rows=%d", got, len(b.Rows))
	}
	// A field introduced late only has values from its first appearance on.
	if got := len(b.Column("c")); got != 1 {
		t.Fatalf("column c len=%d want=1", got)
	}
	if want := []string{"a", "b", "c"}; len(b.Fields) != 3 || b.Fields[0] != want[0] || b.Fields[2] != want[2] {
		t.Fatalf("fields=%v", b.Fields)
	}
}

func TestAggregateRecognizedStreams(t *testing.T) {
	input := strings.Join([]string{
		`{"type": "RECORD", "stream": "payouts", "record": {"payout_id": "po_1"}}`,
		`{"type": "RECORD", "stream": "noise", "record": {"x": "1"}}`,
	}, "\n")

	batches, err := singer.Aggregate(strings.NewReader(input), []string{"payouts", "transactions"}, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 1 || batches[0].Stream != "payouts" {
		t.Fatalf("unexpected batches: %#v", batches)
	}
}

func TestAggregateSkipsBlankLines(t *testing.T) {
	input := "\n  \t \n" +
		`{"type": "RECORD", "stream": "s", "record": {"a": "1"}}` +
		"\n\r\n"
	batches, err := singer.Aggregate(strings.NewReader(input), nil, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batches) != 1 || len(batches[0].Rows) != 1 {
		t.Fatalf("unexpected batches: %#v", batches)
	}
}

func TestAggregateMalformedLineIsFatal(t *testing.T) {
	input := `{"type": "RECORD", "stream": "s", "record": {"a": "1"}}` + "\n" + `{not json`
	_, err := singer.Aggregate(strings.NewReader(input), nil, testLogger())
	var malformed *singer.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
}

func TestParseMessageMissingType(t *testing.T) {
	_, err := singer.ParseMessage([]byte(`{"stream": "s"}`))
	var malformed *singer.MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
}

func TestParseMessageKeepsNumberText(t *testing.T) {
	msg, err := singer.ParseMessage([]byte(`{"type": "RECORD", "stream": "s", "record": {"amount1": 10.555}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	num, ok := msg.Record["amount1"].(json.Number)
	if !ok {
		t.Fatalf("amount not a json.Number: %T", msg.Record["amount1"])
	}
	if num.String() != "10.555" {
		t.Fatalf("amount text=%q", num.String())
	}
}
