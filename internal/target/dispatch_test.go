package target

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pipewise/target-intacct/internal/config"
	"github.com/pipewise/target-intacct/internal/intacct/payload"
)

// fakeClient serves canned reference lists and records every submission.
type fakeClient struct {
	entities map[string][]map[string]string

	getEntityCalls int
	journals       []*payload.Object
	rates          []*payload.Object
	receipts       []*payload.Object
	payments       []*payload.Object
}

func (f *fakeClient) GetEntity(_ context.Context, objectType string, _ []string) ([]map[string]string, error) {
	f.getEntityCalls++
	return f.entities[objectType], nil
}

func (f *fakeClient) PostJournal(_ context.Context, entry *payload.Object) error {
	f.journals = append(f.journals, entry)
	return nil
}

func (f *fakeClient) PostEmployeeRate(_ context.Context, entry *payload.Object) error {
	f.rates = append(f.rates, entry)
	return nil
}

func (f *fakeClient) PostOtherReceipt(_ context.Context, receipt *payload.Object) error {
	f.receipts = append(f.receipts, receipt)
	return nil
}

func (f *fakeClient) PostManualPayment(_ context.Context, pay *payload.Object) error {
	f.payments = append(f.payments, pay)
	return nil
}

func testDispatcher(client *fakeClient) *Dispatcher {
	return &Dispatcher{
		Client: client,
		Logger: log.New(io.Discard),
		Now:    func() time.Time { return time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC) },
	}
}

func testConfig(t *testing.T, objectName string, extra map[string]string) *config.Config {
	t.Helper()
	raw := map[string]string{
		"sender_id":       "sender",
		"sender_password": "sp",
		"company_id":      "co",
		"user_id":         "user",
		"user_password":   "up",
		"entity_id":       "ent",
		"object_name":     objectName,
	}
	for k, v := range extra {
		raw[k] = v
	}
	b, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	cfg, err := config.Parse(b, "json")
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func recordLine(t *testing.T, stream string, record map[string]any) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"type": "RECORD", "stream": stream, "record": record})
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return string(b)
}

func TestRunRejectsUnknownObjectName(t *testing.T) {
	client := &fakeClient{}
	d := testDispatcher(client)
	cfg := testConfig(t, "nonexistent", nil)

	err := d.Run(context.Background(), cfg, strings.NewReader(""))
	if err == nil {
		t.Fatal("expected error for unknown object name")
	}
	if !strings.Contains(err.Error(), "nonexistent") {
		t.Fatalf("error %q does not name the object", err)
	}
	if client.getEntityCalls != 0 {
		t.Fatalf("unknown object name reached the gateway: %d GetEntity calls", client.getEntityCalls)
	}
}

// listItems extracts the items of a List field, failing the test when the
// field is absent or is not a list.
func listItems(t *testing.T, obj *payload.Object, name string) []*payload.Object {
	t.Helper()
	v, ok := obj.Get(name)
	if !ok {
		t.Fatalf("payload has no %s field", name)
	}
	list, ok := v.(payload.List)
	if !ok {
		t.Fatalf("field %s is %T, not a list", name, v)
	}
	return list.Items
}
