package intacct

import (
	"fmt"
	"sort"
	"strings"
)

// objectCodes maps the friendly object names used by configuration and
// reference fetches to the gateway's object codes.
var objectCodes = map[string]string{
	"accounts_payable_bills":             "APBILL",
	"checking_accounts":                  "CHECKINGACCOUNT",
	"classes":                            "CLASS",
	"customers":                          "CUSTOMER",
	"departments":                        "DEPARTMENT",
	"employees":                          "EMPLOYEE",
	"general_ledger_accounts":            "GLACCOUNT",
	"general_ledger_details":             "GLDETAIL",
	"general_ledger_journal_entries":     "GLBATCH",
	"general_ledger_journal_entry_lines": "GLENTRY",
	"items":                              "ITEM",
	"locations":                          "LOCATION",
	"projects":                           "PROJECT",
	"statistical_accounts":               "STATACCOUNT",
	"vendors":                            "VENDOR",
}

// ObjectCode resolves a friendly object name to its gateway object code.
func ObjectCode(objectType string) (string, error) {
	code, ok := objectCodes[strings.TrimSpace(objectType)]
	if !ok {
		return "", fmt.Errorf("unknown object type %q (known: %s)", objectType, strings.Join(knownObjectTypes(), ", "))
	}
	return code, nil
}

func knownObjectTypes() []string {
	out := make([]string, 0, len(objectCodes))
	for name := range objectCodes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
