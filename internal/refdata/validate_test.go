package refdata_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pipewise/target-intacct/internal/intacct/payload"
	"github.com/pipewise/target-intacct/internal/refdata"
)

func TestValidateAndMapRenamesLocation(t *testing.T) {
	list := refdata.List{{"LOCATIONID": "100"}}
	detail := payload.New()

	if err := refdata.ValidateAndMap(detail, list, "LOCATIONID", "100", "statistical_journal"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := detail.GetString("LOCATION"); got != "100" {
		t.Fatalf("LOCATION=%q want=100", got)
	}
	if detail.Has("LOCATIONID") {
		t.Fatal("LOCATIONID must not be set on the outbound detail")
	}
}

func TestValidateAndMapIdentityFields(t *testing.T) {
	for _, field := range []string{"EMPLOYEEID", "CLASSID", "CUSTOMERID", "PROJECTID", "ITEMID", "VENDORID"} {
		detail := payload.New()
		list := refdata.List{{field: "7"}}
		if err := refdata.ValidateAndMap(detail, list, field, "7", "x"); err != nil {
			t.Fatalf("%s: unexpected error: %v", field, err)
		}
		if got := detail.GetString(field); got != "7" {
			t.Fatalf("%s=%q want=7", field, got)
		}
	}
}

func TestValidateAndMapMissingValue(t *testing.T) {
	list := refdata.List{{"LOCATIONID": "100"}}
	err := refdata.ValidateAndMap(payload.New(), list, "LOCATIONID", "999", "statistical_journal")
	var missing *refdata.MissingReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReferenceError, got %v", err)
	}
	if missing.Field != "LOCATIONID" || missing.Value != "999" || missing.Object != "statistical_journal" {
		t.Fatalf("unexpected error fields: %#v", missing)
	}
}

func TestValidateAndMapEmptyValue(t *testing.T) {
	err := refdata.ValidateAndMap(payload.New(), refdata.List{{"CLASSID": "1"}}, "CLASSID", "", "x")
	var missing *refdata.MissingReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingReferenceError, got %v", err)
	}
}

func TestValidateAndMapIdempotent(t *testing.T) {
	list := refdata.List{{"DEPARTMENTID": "D1"}}
	detail := payload.New().Set("AMOUNT", "10.00")

	for i := 0; i < 2; i++ {
		if err := refdata.ValidateAndMap(detail, list, "DEPARTMENTID", "D1", "x"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if detail.Len() != 2 {
		t.Fatalf("len=%d want=2 (no duplicate fields)", detail.Len())
	}
	if got := detail.GetString("DEPARTMENT"); got != "D1" {
		t.Fatalf("DEPARTMENT=%q", got)
	}
}

func TestOutboundNameFallback(t *testing.T) {
	// Fields outside the fixed table lose every "ID" substring, interior
	// occurrences included.
	cases := map[string]string{
		"WIDGETID": "WGET",
		"GRIDID":   "GR",
		"PAYEE":    "PAYEE",
	}
	for in, want := range cases {
		if got := refdata.OutboundName(in); got != want {
			t.Fatalf("OutboundName(%s)=%q want=%q", in, got, want)
		}
	}
}

type fakeFetcher struct {
	calls []string
	rows  map[string][]map[string]string
	err   error
}

func (f *fakeFetcher) GetEntity(_ context.Context, objectType string, _ []string) ([]map[string]string, error) {
	f.calls = append(f.calls, objectType)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[objectType], nil
}

func TestLoadSnapshot(t *testing.T) {
	f := &fakeFetcher{rows: map[string][]map[string]string{
		"employees": {{"EMPLOYEEID": "10"}},
		"classes":   {{"CLASSID": "c1"}},
	}}
	snap, err := refdata.Load(context.Background(), f, map[string]string{
		"employees": "EMPLOYEEID",
		"classes":   "CLASSID",
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !refdata.Contains(snap.List("employees"), "EMPLOYEEID", "10") {
		t.Fatal("employees list missing id 10")
	}
	if snap.List("vendors") != nil {
		t.Fatal("unfetched list should be nil")
	}
}

func TestLoadSnapshotPropagatesFetchError(t *testing.T) {
	f := &fakeFetcher{err: errors.New("boom")}
	_, err := refdata.Load(context.Background(), f, map[string]string{"employees": "EMPLOYEEID"})
	if err == nil || !errors.Is(err, f.err) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}
