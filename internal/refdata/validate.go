package refdata

import (
	"fmt"
	"strings"

	"github.com/pipewise/target-intacct/internal/intacct/payload"
)

// outboundNames is the fixed table from reference-field name to the element
// name used in submission payloads. Built once; a field outside the table
// falls back to stripping every "ID" substring, which matches the observed
// behavior for all historical inputs.
var outboundNames = map[string]string{
	"EMPLOYEEID":    "EMPLOYEEID",
	"CLASSID":       "CLASSID",
	"CUSTOMERID":    "CUSTOMERID",
	"PROJECTID":     "PROJECTID",
	"ITEMID":        "ITEMID",
	"VENDORID":      "VENDORID",
	"LOCATIONID":    "LOCATION",
	"DEPARTMENTID":  "DEPARTMENT",
	"BANKACCOUNTID": "BANKACCOUNT",
	"ACCOUNTNO":     "ACCOUNTNO",
}

// OutboundName returns the payload element name for a reference field.
func OutboundName(field string) string {
	if name, ok := outboundNames[field]; ok {
		return name
	}
	return strings.ReplaceAll(field, "ID", "")
}

// MissingReferenceError reports an identifier value absent from the live
// reference snapshot. It is fatal for the run.
type MissingReferenceError struct {
	Field  string
	Value  string
	Object string
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("field %s with the value %q is missing in Intacct for %s", e.Field, e.Value, e.Object)
}

// ValidateAndMap confirms that value appears under fieldName somewhere in
// list, then sets it on detail under the outbound element name. An empty
// value or a value not in the list fails with MissingReferenceError; callers
// must pre-filter optional dimensions.
func ValidateAndMap(detail *payload.Object, list List, fieldName, value, objectName string) error {
	if strings.TrimSpace(value) == "" || !Contains(list, fieldName, value) {
		return &MissingReferenceError{Field: fieldName, Value: value, Object: objectName}
	}
	detail.Set(OutboundName(fieldName), value)
	return nil
}
