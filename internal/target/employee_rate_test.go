package target

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pipewise/target-intacct/internal/dateutil"
	"github.com/pipewise/target-intacct/internal/intacct/payload"
	"github.com/pipewise/target-intacct/internal/refdata"
)

func employeeEntities() map[string][]map[string]string {
	return map[string][]map[string]string{
		"employees": {{"EMPLOYEEID": "E1"}, {"EMPLOYEEID": "E2"}},
	}
}

func TestEmployeeRatePostsOneEntryPerRow(t *testing.T) {
	client := &fakeClient{entities: employeeEntities()}
	d := testDispatcher(client)
	cfg := testConfig(t, "employee_rate", nil)

	input := strings.Join([]string{
		recordLine(t, "rates", map[string]any{"employeeid": "E1", "ratestartdate": "2024-03-05", "billingrate": 85.5}),
		recordLine(t, "rates", map[string]any{"employeeid": "E2", "ratestartdate": "03/06/2024", "salaryrate": 60000}),
	}, "\n")
	if err := d.Run(context.Background(), cfg, strings.NewReader(input)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(client.rates) != 2 {
		t.Fatalf("posted %d rate entries, want 2", len(client.rates))
	}

	first := client.rates[0]
	if got := first.GetString("employeeid"); got != "E1" {
		t.Fatalf("employeeid = %q", got)
	}
	date, ok := first.Get("ratestartdate")
	if !ok {
		t.Fatal("entry has no ratestartdate")
	}
	dateObj, ok := date.(*payload.Object)
	if !ok {
		t.Fatalf("ratestartdate is %T, not a nested object", date)
	}
	if y, m, day := dateObj.GetString("year"), dateObj.GetString("month"), dateObj.GetString("day"); y != "2024" || m != "3" || day != "5" {
		t.Fatalf("ratestartdate = %s-%s-%s, want 2024-3-5", y, m, day)
	}
	if got := first.GetString("billingrate"); got != "85.5" {
		t.Fatalf("billingrate = %q, want the input text", got)
	}
	// salaryrate was absent from the record and defaults to empty.
	if got := first.GetString("salaryrate"); got != "" {
		t.Fatalf("salaryrate = %q, want empty", got)
	}

	second := client.rates[1]
	if got := second.GetString("employeeid"); got != "E2" {
		t.Fatalf("second employeeid = %q", got)
	}
}

func TestEmployeeRateUnknownEmployeeIsFatal(t *testing.T) {
	client := &fakeClient{entities: employeeEntities()}
	d := testDispatcher(client)
	cfg := testConfig(t, "employee_rate", nil)

	input := recordLine(t, "rates", map[string]any{"employeeid": "E9", "ratestartdate": "2024-03-05"})
	err := d.Run(context.Background(), cfg, strings.NewReader(input))
	var missing *refdata.MissingReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingReferenceError", err)
	}
	if missing.Value != "E9" {
		t.Fatalf("missing value = %q, want E9", missing.Value)
	}
	if len(client.rates) != 0 {
		t.Fatal("a rate entry was posted despite the error")
	}
}

func TestEmployeeRateRequiresColumns(t *testing.T) {
	client := &fakeClient{entities: employeeEntities()}
	d := testDispatcher(client)
	cfg := testConfig(t, "employee_rate", nil)

	input := recordLine(t, "rates", map[string]any{"employeeid": "E1"})
	err := d.Run(context.Background(), cfg, strings.NewReader(input))
	var missing *MissingColumnsError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingColumnsError", err)
	}
}

func TestEmployeeRateBadDateIsFatal(t *testing.T) {
	client := &fakeClient{entities: employeeEntities()}
	d := testDispatcher(client)
	cfg := testConfig(t, "employee_rate", nil)

	input := recordLine(t, "rates", map[string]any{"employeeid": "E1", "ratestartdate": "not a date"})
	err := d.Run(context.Background(), cfg, strings.NewReader(input))
	var invalid *dateutil.InvalidDateError
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want InvalidDateError", err)
	}
}
