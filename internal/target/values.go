package target

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// fieldString renders a record cell as its textual form. Numbers keep the
// text they arrived with (records decode with json.Number).
func fieldString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// fieldDecimal coerces a record cell to a decimal, treating absent/null as
// zero.
func fieldDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, nil
	case json.Number:
		return decimal.NewFromString(t.String())
	case string:
		if strings.TrimSpace(t) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(t))
	case float64:
		return decimal.NewFromFloat(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	default:
		return decimal.Zero, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}

// fieldInt coerces a record cell to an integer, treating absent/null as
// zero.
func fieldInt(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			// Accept integral floats such as 3.0.
			f, ferr := t.Float64()
			if ferr != nil || f != float64(int64(f)) {
				return 0, fmt.Errorf("value %v is not an integer", t)
			}
			return int(f), nil
		}
		return int(n), nil
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, fmt.Errorf("value %q is not an integer", t)
		}
		return n, nil
	case float64:
		return int(t), nil
	case int:
		return t, nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not an integer", v, v)
	}
}
