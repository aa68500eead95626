package target

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/pipewise/target-intacct/internal/config"
	"github.com/pipewise/target-intacct/internal/dateutil"
	"github.com/pipewise/target-intacct/internal/intacct/payload"
	"github.com/pipewise/target-intacct/internal/refdata"
	"github.com/pipewise/target-intacct/internal/singer"
)

var employeeRateRequiredColumns = []string{"employeeid", "ratestartdate"}

func (d *Dispatcher) uploadEmployeeRates(ctx context.Context, cfg *config.Config, input io.Reader) error {
	snapshot, err := refdata.Load(ctx, d.Client, map[string]string{"employees": "EMPLOYEEID"})
	if err != nil {
		return err
	}
	employees := snapshot.List("employees")

	batches, err := singer.Aggregate(input, nil, d.Logger)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return fmt.Errorf("input contained no records for %s", cfg.ObjectName)
	}

	posted := 0
	for _, batch := range batches {
		for _, col := range employeeRateRequiredColumns {
			if !batch.HasField(col) {
				return &MissingColumnsError{Stream: batch.Stream, Found: batch.Fields, Required: employeeRateRequiredColumns}
			}
		}
		for i, row := range batch.Rows {
			entry, err := buildEmployeeRateEntry(employees, batch.Stream, row, i)
			if err != nil {
				return err
			}
			if err := d.Client.PostEmployeeRate(ctx, entry); err != nil {
				return err
			}
			posted++
		}
	}
	d.Logger.Info("posted employee rates", "count", posted)
	return nil
}

func buildEmployeeRateEntry(employees refdata.List, stream string, row singer.Row, rowIdx int) (*payload.Object, error) {
	id := fieldString(row["employeeid"])
	if !refdata.Contains(employees, "EMPLOYEEID", id) {
		return nil, &refdata.MissingReferenceError{Field: "EMPLOYEEID", Value: id, Object: "employee_rate"}
	}

	startDate, err := dateutil.Parse(fieldString(row["ratestartdate"]))
	if err != nil {
		return nil, fmt.Errorf("stream %q row %d: ratestartdate: %w", stream, rowIdx, err)
	}

	entry := payload.New().
		Set("employeeid", id).
		Set("ratestartdate", payload.New().
			Set("year", strconv.Itoa(startDate.Year())).
			Set("month", strconv.Itoa(int(startDate.Month()))).
			Set("day", strconv.Itoa(startDate.Day()))).
		Set("billingrate", fieldString(row["billingrate"])).
		Set("salaryrate", fieldString(row["salaryrate"]))
	return entry, nil
}
