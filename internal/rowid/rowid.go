// Package rowid implements the database row identifier value.
package rowid

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/koustreak/sqlconform/internal/errs"
)

// RowID is an opaque, immutable row address. The zero value is an empty id.
type RowID struct {
	b []byte
}

// FromBytes returns a RowID holding a copy of b.
func FromBytes(b []byte) RowID {
	return RowID{b: append([]byte(nil), b...)}
}

// Parse decodes a hexadecimal representation such as "02b7abfe".
// Upper and lower case digits are accepted.
func Parse(s string) (RowID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return RowID{}, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("invalid row id %q", s), err)
	}
	return RowID{b: b}, nil
}

// From converts a column value into a RowID. Strings are parsed as hex.
func From(v any) (RowID, error) {
	switch x := v.(type) {
	case RowID:
		return x, nil
	case *RowID:
		if x == nil {
			return RowID{}, errs.Conversion(v, "rowid", nil)
		}
		return *x, nil
	case []byte:
		return FromBytes(x), nil
	case string:
		return Parse(x)
	default:
		return RowID{}, errs.Conversion(v, "rowid", nil)
	}
}

// Bytes returns a copy of the raw id.
func (r RowID) Bytes() []byte {
	return append([]byte(nil), r.b...)
}

// String returns the lower-case hex form.
func (r RowID) String() string {
	return hex.EncodeToString(r.b)
}

// Equal reports whether r and o address the same row.
func (r RowID) Equal(o RowID) bool {
	return bytes.Equal(r.b, o.b)
}

// Len returns the number of bytes in the id.
func (r RowID) Len() int {
	return len(r.b)
}
