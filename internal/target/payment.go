package target

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pipewise/target-intacct/internal/config"
	"github.com/pipewise/target-intacct/internal/intacct/payload"
	"github.com/pipewise/target-intacct/internal/refdata"
	"github.com/pipewise/target-intacct/internal/singer"
)

// paymentRequiredConfigKeys must all be configured for the payment-record
// object, along with at least one accountno_* key.
var paymentRequiredConfigKeys = []string{
	"bankaccountid",
	"checkno",
	"classid",
	"customerid",
	"departmentid",
	"description",
	"item1099",
	"locationid",
	"manual_payment_memo",
	"memo",
	"paymentmethod",
	"projectid",
	"source",
	"vendorid",
}

var payoutRequiredColumns = []string{
	"payout_id",
	"gross_amount",
	"month",
	"day",
	"year",
	"payout_amount",
	"total_fees",
	"total_sales_tax",
}

var transactionRequiredColumns = []string{"id", "payout_id", "amount", "fee", "tax", "transaction_type"}

// configIDChecks pairs a configured identifier key with the reference list
// that must contain its value.
var configIDChecks = []struct {
	key        string
	objectType string
}{
	{"locationid", "locations"},
	{"departmentid", "departments"},
	{"vendorid", "vendors"},
	{"bankaccountid", "checking_accounts"},
	{"projectid", "projects"},
	{"customerid", "customers"},
	{"classid", "classes"},
}

func (d *Dispatcher) uploadPaymentRecords(ctx context.Context, cfg *config.Config, input io.Reader) error {
	if err := verifyPaymentConfigKeys(cfg); err != nil {
		return err
	}

	specs := map[string]string{"general_ledger_accounts": "ACCOUNTNO"}
	for _, check := range configIDChecks {
		specs[check.objectType] = strings.ToUpper(check.key)
	}
	snapshot, err := refdata.Load(ctx, d.Client, specs)
	if err != nil {
		return err
	}
	if err := verifyPaymentConfigValues(cfg, snapshot); err != nil {
		return err
	}

	batches, err := singer.Aggregate(input, []string{"payouts", "transactions"}, d.Logger)
	if err != nil {
		return err
	}
	var payouts, transactions *singer.Batch
	for _, batch := range batches {
		switch batch.Stream {
		case "payouts":
			payouts = batch
		case "transactions":
			transactions = batch
		}
	}
	if payouts == nil {
		return fmt.Errorf("input contained no payouts records")
	}
	for _, col := range payoutRequiredColumns {
		if !payouts.HasField(col) {
			return &MissingColumnsError{Stream: payouts.Stream, Found: payouts.Fields, Required: payoutRequiredColumns}
		}
	}

	var totals map[string]receiptTotals
	if transactions != nil {
		for _, col := range transactionRequiredColumns {
			if !transactions.HasField(col) {
				return &MissingColumnsError{Stream: transactions.Stream, Found: transactions.Fields, Required: transactionRequiredColumns}
			}
		}
		totals, err = receiptTotalsByPayout(transactions)
		if err != nil {
			return err
		}
	}

	for i, row := range payouts.Rows {
		if err := d.submitPayoutRow(ctx, cfg, row, i, totals); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) submitPayoutRow(ctx context.Context, cfg *config.Config, row singer.Row, rowIdx int, totals map[string]receiptTotals) error {
	year, err := fieldInt(row["year"])
	if err != nil {
		return fmt.Errorf("payouts row %d: year: %w", rowIdx, err)
	}
	month, err := fieldInt(row["month"])
	if err != nil {
		return fmt.Errorf("payouts row %d: month: %w", rowIdx, err)
	}
	day, err := fieldInt(row["day"])
	if err != nil {
		return fmt.Errorf("payouts row %d: day: %w", rowIdx, err)
	}
	if year == 0 || month == 0 || day == 0 {
		d.Logger.Warn("skipping payout with incomplete date",
			"payout_id", fieldString(row["payout_id"]), "year", year, "month", month, "day", day)
		return nil
	}

	payout, err := fieldDecimal(row["payout_amount"])
	if err != nil {
		return fmt.Errorf("payouts row %d: payout_amount: %w", rowIdx, err)
	}
	gross, err := fieldDecimal(row["gross_amount"])
	if err != nil {
		return fmt.Errorf("payouts row %d: gross_amount: %w", rowIdx, err)
	}
	fees, err := fieldDecimal(row["total_fees"])
	if err != nil {
		return fmt.Errorf("payouts row %d: total_fees: %w", rowIdx, err)
	}
	tax, err := fieldDecimal(row["total_sales_tax"])
	if err != nil {
		return fmt.Errorf("payouts row %d: total_sales_tax: %w", rowIdx, err)
	}

	// Per-payout transaction totals take precedence when the input carried
	// a transactions stream.
	if t, ok := totals[fieldString(row["payout_id"])]; ok {
		gross, fees, tax = t.gross, t.fees, t.tax
	}

	if payout.IsPositive() {
		receipt, err := buildOtherReceipt(cfg, year, month, day, gross, fees, tax)
		if err != nil {
			return err
		}
		if err := d.Client.PostOtherReceipt(ctx, receipt); err != nil {
			return err
		}
		d.Logger.Info("posted other receipt", "payout_id", fieldString(row["payout_id"]), "gross", gross.StringFixed(2))
		return nil
	}

	pay, err := buildManualPayment(cfg, year, month, day, payout)
	if err != nil {
		return err
	}
	if err := d.Client.PostManualPayment(ctx, pay); err != nil {
		return err
	}
	d.Logger.Info("posted manual payment", "payout_id", fieldString(row["payout_id"]), "amount", payout.Abs().StringFixed(2))
	return nil
}

// buildOtherReceipt assembles the positive-payout payload. Element order is
// part of the wire contract.
func buildOtherReceipt(cfg *config.Config, year, month, day int, gross, fees, tax decimal.Decimal) (*payload.Object, error) {
	lines, err := buildReceiptLineItems(cfg, gross, fees, tax)
	if err != nil {
		return nil, err
	}
	receipt := payload.New().
		Set("paymentdate", dateLines(year, month, day)).
		Set("payee", configValue(cfg, "source")).
		Set("receiveddate", dateLines(year, month, day)).
		Set("paymentmethod", configValue(cfg, "paymentmethod")).
		Set("bankaccountid", configValue(cfg, "bankaccountid")).
		Set("depositdate", dateLines(year, month, day)).
		Set("description", configValue(cfg, "description")).
		Set("receiptitems", payload.List{Name: "lineitem", Items: lines})
	return receipt, nil
}

func buildReceiptLineItems(cfg *config.Config, gross, fees, tax decimal.Decimal) ([]*payload.Object, error) {
	newLine := func(accountKey string, amount decimal.Decimal) (*payload.Object, error) {
		account, ok := cfg.Value(accountKey)
		if !ok || strings.TrimSpace(account) == "" {
			return nil, &config.MissingConfigError{Missing: []string{accountKey}, Found: cfg.Keys()}
		}
		return payload.New().
			Set("glaccountno", account).
			Set("amount", amount.StringFixed(2)).
			Set("memo", configValue(cfg, "memo")).
			Set("locationid", configValue(cfg, "locationid")).
			Set("departmentid", configValue(cfg, "departmentid")).
			Set("projectid", configValue(cfg, "projectid")).
			Set("customerid", configValue(cfg, "customerid")).
			Set("classid", configValue(cfg, "classid")), nil
	}

	grossLine, err := newLine("accountno_1", gross)
	if err != nil {
		return nil, err
	}
	lines := []*payload.Object{grossLine}
	if !fees.IsZero() {
		feeLine, err := newLine("accountno_2", fees.Neg())
		if err != nil {
			return nil, err
		}
		lines = append(lines, feeLine)
	}
	if !tax.IsZero() {
		taxLine, err := newLine("accountno_3", tax)
		if err != nil {
			return nil, err
		}
		lines = append(lines, taxLine)
	}
	return lines, nil
}

// buildManualPayment assembles the non-positive-payout payload. Element
// order is part of the wire contract.
func buildManualPayment(cfg *config.Config, year, month, day int, payout decimal.Decimal) (*payload.Object, error) {
	account, ok := cfg.Value("accountno_1")
	if !ok || strings.TrimSpace(account) == "" {
		return nil, &config.MissingConfigError{Missing: []string{"accountno_1"}, Found: cfg.Keys()}
	}
	item := payload.New().
		Set("glaccountno", account).
		Set("paymentamount", payout.Abs().StringFixed(2)).
		Set("item1099", configValue(cfg, "item1099")).
		Set("departmentid", configValue(cfg, "departmentid")).
		Set("locationid", configValue(cfg, "locationid")).
		Set("projectid", configValue(cfg, "projectid")).
		Set("customerid", configValue(cfg, "customerid")).
		Set("classid", configValue(cfg, "classid"))

	pay := payload.New().
		Set("bankaccountid", configValue(cfg, "bankaccountid")).
		Set("vendorid", configValue(cfg, "vendorid")).
		Set("memo", configValue(cfg, "manual_payment_memo")).
		Set("paymentmethod", configValue(cfg, "paymentmethod")).
		Set("checkdate", dateLines(year, month, day)).
		Set("checkno", configValue(cfg, "checkno")).
		// billno is the payment date.
		Set("billno", fmt.Sprintf("%d%02d%02d", year, month, day)).
		Set("payitems", payload.List{Name: "payitem", Items: []*payload.Object{item}})
	return pay, nil
}

func dateLines(year, month, day int) *payload.Object {
	return payload.New().
		Set("year", strconv.Itoa(year)).
		Set("month", strconv.Itoa(month)).
		Set("day", strconv.Itoa(day))
}

func configValue(cfg *config.Config, key string) string {
	v, _ := cfg.Value(key)
	return v
}

func verifyPaymentConfigKeys(cfg *config.Config) error {
	var missing []string
	for _, key := range paymentRequiredConfigKeys {
		if v, ok := cfg.Value(key); !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
	}
	if len(cfg.AccountNumbers()) == 0 {
		missing = append(missing, "accountno_1")
	}
	if len(missing) > 0 {
		return &config.MissingConfigError{Missing: missing, Found: cfg.Keys()}
	}
	return nil
}

// verifyPaymentConfigValues cross-checks every configured identifier
// against the live reference snapshot before any row is processed.
func verifyPaymentConfigValues(cfg *config.Config, snapshot *refdata.Snapshot) error {
	for _, check := range configIDChecks {
		value := configValue(cfg, check.key)
		if !refdata.Contains(snapshot.List(check.objectType), strings.ToUpper(check.key), value) {
			return &refdata.MissingReferenceError{Field: check.key, Value: value, Object: "payment_record"}
		}
	}

	accounts := snapshot.List("general_ledger_accounts")
	for _, kv := range cfg.AccountNumbers() {
		key, value := kv[0], kv[1]
		want, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("config key %s: account number %q is not numeric", key, value)
		}
		found := false
		for _, entry := range accounts {
			got, err := strconv.Atoi(strings.TrimSpace(entry["ACCOUNTNO"]))
			if err == nil && got == want {
				found = true
				break
			}
		}
		if !found {
			return &refdata.MissingReferenceError{Field: "glaccountno", Value: value, Object: "payment_record"}
		}
	}
	return nil
}

// receiptTotals accumulates one payout's transaction amounts.
type receiptTotals struct {
	gross decimal.Decimal
	fees  decimal.Decimal
	tax   decimal.Decimal
}

// receiptTotalsByPayout derives gross/fee/tax totals per payout from the
// transactions stream. Charges and payments contribute gross, fee and tax;
// fee rows add their amount to fees; adjustments add to gross; refunds
// subtract from gross; anything else is fatal.
func receiptTotalsByPayout(batch *singer.Batch) (map[string]receiptTotals, error) {
	type accumulator struct {
		gross, fees, tax, adjustments, refunds decimal.Decimal
	}
	acc := make(map[string]*accumulator)

	for i, row := range batch.Rows {
		payoutID := fieldString(row["payout_id"])
		a, ok := acc[payoutID]
		if !ok {
			a = &accumulator{}
			acc[payoutID] = a
		}
		amount, err := fieldDecimal(row["amount"])
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: amount: %w", i, err)
		}
		fee, err := fieldDecimal(row["fee"])
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: fee: %w", i, err)
		}
		tax, err := fieldDecimal(row["tax"])
		if err != nil {
			return nil, fmt.Errorf("transactions row %d: tax: %w", i, err)
		}

		switch fieldString(row["transaction_type"]) {
		case "charge", "payment":
			a.gross = a.gross.Add(amount)
			a.fees = a.fees.Add(fee)
			a.tax = a.tax.Add(tax)
		case "fee":
			a.fees = a.fees.Add(amount).Add(fee)
		case "adjustment":
			a.adjustments = a.adjustments.Add(amount)
			a.fees = a.fees.Add(fee)
		case "refund":
			a.refunds = a.refunds.Add(amount)
			a.fees = a.fees.Add(fee)
		default:
			return nil, &UnexpectedCategoryError{Value: fieldString(row["transaction_type"])}
		}
	}

	out := make(map[string]receiptTotals, len(acc))
	for payoutID, a := range acc {
		out[payoutID] = receiptTotals{
			gross: a.gross.Add(a.adjustments).Sub(a.refunds).Sub(a.tax),
			fees:  a.fees,
			tax:   a.tax,
		}
	}
	return out, nil
}
