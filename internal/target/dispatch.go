// Package target builds and submits Intacct records from aggregated input
// batches: payroll and statistical journals, employee pay rates, and
// payment records.
package target

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pipewise/target-intacct/internal/config"
	"github.com/pipewise/target-intacct/internal/intacct/payload"
)

// Client is the gateway surface the builders depend on.
type Client interface {
	GetEntity(ctx context.Context, objectType string, fields []string) ([]map[string]string, error)
	PostJournal(ctx context.Context, entry *payload.Object) error
	PostEmployeeRate(ctx context.Context, entry *payload.Object) error
	PostOtherReceipt(ctx context.Context, receipt *payload.Object) error
	PostManualPayment(ctx context.Context, pay *payload.Object) error
}

// ObjectNames lists the object names the dispatcher accepts.
var ObjectNames = []string{"payroll_journal", "statistical_journal", "employee_rate", "payment_record"}

// Dispatcher selects and runs the builder for the configured object name.
type Dispatcher struct {
	Client Client
	Logger *log.Logger

	// Now is the batch-date clock; nil means time.Now.
	Now func() time.Time
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Run executes the configured upload end to end: fetch reference data,
// aggregate input, build entries, submit. An unrecognized object name fails
// before any network call.
func (d *Dispatcher) Run(ctx context.Context, cfg *config.Config, input io.Reader) error {
	d.Logger.Info("starting upload", "object_name", cfg.ObjectName, "batch_title", cfg.BatchTitle)

	var err error
	switch cfg.ObjectName {
	case "payroll_journal":
		err = d.uploadJournal(ctx, payrollJournal, cfg, input)
	case "statistical_journal":
		err = d.uploadJournal(ctx, statisticalJournal, cfg, input)
	case "employee_rate":
		err = d.uploadEmployeeRates(ctx, cfg, input)
	case "payment_record":
		err = d.uploadPaymentRecords(ctx, cfg, input)
	default:
		return fmt.Errorf("no builder for object_name %q (valid: %v)", cfg.ObjectName, ObjectNames)
	}
	if err != nil {
		return err
	}

	d.Logger.Info("Upload completed")
	return nil
}
