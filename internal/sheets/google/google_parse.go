package google

import (
	"fmt"
	"strconv"
)

// valuesToRows converts a values matrix (as returned by the Sheets API with
// UNFORMATTED_VALUE) into cell text. Numbers are printed without exponent so
// serial dates and large amounts survive.
func valuesToRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = cellText(v)
		}
		out[i] = cells
	}
	return out
}

func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return fmt.Sprint(x)
	}
}
