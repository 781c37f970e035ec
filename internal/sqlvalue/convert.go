// Package sqlvalue converts driver values into the Go types requested by
// typed getters. Conversion failures are reported as data conversion errors.
package sqlvalue

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/koustreak/sqlconform/internal/errs"
)

// timeLayouts are tried in order when a string is read as a time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// String renders v as text. A nil value yields "".
func String(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x), nil
	default:
		return "", errs.Conversion(v, "string", nil)
	}
}

// Int64 converts v to an int64. A nil value yields 0.
func Int64(v any) (int64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > 1<<63-1 {
			return 0, errs.Conversion(v, "int64", nil)
		}
		return int64(x), nil
	case float32:
		return Int64(float64(x))
	case float64:
		if x != math.Trunc(x) || x < -1<<63 || x >= 1<<63 {
			return 0, errs.Conversion(v, "int64", nil)
		}
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, errs.Conversion(v, "int64", err)
		}
		return n, nil
	case []byte:
		return Int64(string(x))
	default:
		return 0, errs.Conversion(v, "int64", nil)
	}
}

// Float64 converts v to a float64. A nil value yields 0.
func Float64(v any) (float64, error) {
	switch x := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, errs.Conversion(v, "float64", err)
		}
		return f, nil
	case []byte:
		return Float64(string(x))
	default:
		n, err := Int64(v)
		if err != nil {
			return 0, errs.Conversion(v, "float64", nil)
		}
		return float64(n), nil
	}
}

// Bool converts v to a bool. Numeric values are true when non-zero.
func Bool(v any) (bool, error) {
	switch x := v.(type) {
	case nil:
		return false, nil
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, errs.Conversion(v, "bool", err)
		}
		return b, nil
	case []byte:
		return Bool(string(x))
	default:
		n, err := Int64(v)
		if err != nil {
			return false, errs.Conversion(v, "bool", nil)
		}
		return n != 0, nil
	}
}

// Bytes returns v as a byte slice. Strings are returned as their UTF-8 bytes.
// The result never aliases v.
func Bytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return append([]byte(nil), x...), nil
	case string:
		return []byte(x), nil
	default:
		return nil, errs.Conversion(v, "[]byte", nil)
	}
}

// Time converts v to a time.Time. Strings are parsed with the common
// SQL timestamp layouts.
func Time(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return x, nil
	case string:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t, nil
			}
		}
		return time.Time{}, errs.Conversion(v, "time.Time", nil)
	case []byte:
		return Time(string(x))
	default:
		return time.Time{}, errs.Conversion(v, "time.Time", nil)
	}
}
