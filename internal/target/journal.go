package target

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pipewise/target-intacct/internal/config"
	"github.com/pipewise/target-intacct/internal/intacct/payload"
	"github.com/pipewise/target-intacct/internal/refdata"
	"github.com/pipewise/target-intacct/internal/singer"
)

// journalVariant parameterizes the shared journal builder. The payroll and
// statistical variants differ only in column case and in which account list
// validates the account numbers.
type journalVariant struct {
	objectName     string
	accountPrefix  string
	amountPrefix   string
	trTypeColumn   string
	accountRefType string
}

var (
	statisticalJournal = journalVariant{
		objectName:     "statistical_journal",
		accountPrefix:  "accountno",
		amountPrefix:   "amount",
		trTypeColumn:   "tr_type",
		accountRefType: "statistical_accounts",
	}
	payrollJournal = journalVariant{
		objectName:     "payroll_journal",
		accountPrefix:  "ACCOUNTNO",
		amountPrefix:   "AMOUNT",
		trTypeColumn:   "TR_TYPE",
		accountRefType: "general_ledger_accounts",
	}
)

// defaultJournalCode is used when no Journal column overrides it.
const defaultJournalCode = "STJ"

// journalColumn optionally overrides the journal code per batch.
const journalColumn = "Journal"

// dimensionColumns maps optional input columns to their reference fields,
// in the order the line detail carries them.
var dimensionColumns = []struct {
	column     string
	field      string
	objectType string
}{
	{"employeeid", "EMPLOYEEID", "employees"},
	{"classid", "CLASSID", "classes"},
	{"locationid", "LOCATIONID", "locations"},
	{"departmentid", "DEPARTMENTID", "departments"},
	{"customerid", "CUSTOMERID", "customers"},
	{"projectid", "PROJECTID", "projects"},
	{"itemid", "ITEMID", "items"},
	{"vendorid", "VENDORID", "vendors"},
}

func (d *Dispatcher) uploadJournal(ctx context.Context, variant journalVariant, cfg *config.Config, input io.Reader) error {
	specs := map[string]string{variant.accountRefType: "ACCOUNTNO"}
	for _, dim := range dimensionColumns {
		specs[dim.objectType] = dim.field
	}
	snapshot, err := refdata.Load(ctx, d.Client, specs)
	if err != nil {
		return err
	}

	batches, err := singer.Aggregate(input, nil, d.Logger)
	if err != nil {
		return err
	}
	if len(batches) == 0 {
		return fmt.Errorf("input contained no records for %s", variant.objectName)
	}

	for _, batch := range batches {
		entry, lines, err := d.buildJournalEntry(variant, cfg, snapshot, batch)
		if err != nil {
			return err
		}
		if err := d.Client.PostJournal(ctx, entry); err != nil {
			return err
		}
		d.Logger.Info("posted journal entry", "stream", batch.Stream, "lines", lines)
	}
	return nil
}

func (d *Dispatcher) buildJournalEntry(variant journalVariant, cfg *config.Config, snapshot *refdata.Snapshot, batch *singer.Batch) (*payload.Object, int, error) {
	var accountCols []string
	for _, field := range batch.Fields {
		if strings.HasPrefix(field, variant.accountPrefix) {
			accountCols = append(accountCols, field)
		}
	}
	if len(accountCols) == 0 {
		return nil, 0, fmt.Errorf("stream %q: at least one account number column is required (prefix %q)", batch.Stream, variant.accountPrefix)
	}
	if !batch.HasField(variant.trTypeColumn) {
		return nil, 0, &MissingColumnsError{Stream: batch.Stream, Found: batch.Fields, Required: []string{variant.trTypeColumn}}
	}

	var lines []*payload.Object
	for _, accountCol := range accountCols {
		amountCol := variant.amountPrefix + strings.TrimPrefix(accountCol, variant.accountPrefix)
		if !batch.HasField(amountCol) {
			return nil, 0, &MissingColumnsError{Stream: batch.Stream, Found: batch.Fields, Required: []string{amountCol}}
		}
		for i, row := range batch.Rows {
			accountNo, ok := row[accountCol]
			if !ok {
				continue
			}
			line, err := d.buildJournalLine(variant, snapshot, batch.Stream, row, i, accountCol, amountCol, fieldString(accountNo))
			if err != nil {
				return nil, 0, err
			}
			lines = append(lines, line)
		}
	}

	entry := payload.New().
		Set("JOURNAL", journalCode(batch)).
		Set("BATCH_DATE", d.now().Format("01/02/2006")).
		Set("BATCH_TITLE", cfg.BatchTitle).
		Set("ENTRIES", payload.List{Name: "GLENTRY", Items: lines})
	return entry, len(lines), nil
}

func (d *Dispatcher) buildJournalLine(variant journalVariant, snapshot *refdata.Snapshot, stream string, row singer.Row, rowIdx int, accountCol, amountCol, accountNo string) (*payload.Object, error) {
	rawAmount, ok := row[amountCol]
	if !ok {
		return nil, fmt.Errorf("stream %q row %d: column %q has no matching %q value", stream, rowIdx, accountCol, amountCol)
	}
	amount, err := fieldDecimal(rawAmount)
	if err != nil {
		return nil, fmt.Errorf("stream %q row %d: column %q: %w", stream, rowIdx, amountCol, err)
	}
	trType, ok := row[variant.trTypeColumn]
	if !ok {
		return nil, fmt.Errorf("stream %q row %d: missing %q value", stream, rowIdx, variant.trTypeColumn)
	}

	line := payload.New().
		Set("AMOUNT", amount.Round(2).StringFixed(2)).
		Set("TR_TYPE", fieldString(trType))
	if err := refdata.ValidateAndMap(line, snapshot.List(variant.accountRefType), "ACCOUNTNO", accountNo, variant.objectName); err != nil {
		return nil, err
	}
	for _, dim := range dimensionColumns {
		v, ok := row[dim.column]
		if !ok {
			continue
		}
		if err := refdata.ValidateAndMap(line, snapshot.List(dim.objectType), dim.field, fieldString(v), variant.objectName); err != nil {
			return nil, err
		}
	}
	return line, nil
}

func journalCode(batch *singer.Batch) string {
	for _, row := range batch.Rows {
		if v, ok := row[journalColumn]; ok {
			return fieldString(v)
		}
	}
	return defaultJournalCode
}
