package statement

import (
	"strings"

	"github.com/koustreak/sqlconform/internal/array"
	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/rowid"
	"github.com/koustreak/sqlconform/internal/sqlvalue"
)

// GetBlob reads column col of the current row as a Blob. SQL NULL yields nil.
func GetBlob(cur *cursor.Cursor, col int) (*lob.Blob, error) {
	v, err := cur.GetObject(col)
	if err != nil {
		return nil, err
	}
	return blobOf(v)
}

// GetClob reads column col of the current row as a Clob. SQL NULL yields nil.
func GetClob(cur *cursor.Cursor, col int) (*lob.Clob, error) {
	v, err := cur.GetObject(col)
	if err != nil {
		return nil, err
	}
	return clobOf(v)
}

// GetNClob reads column col of the current row as an NClob.
func GetNClob(cur *cursor.Cursor, col int) (lob.NClob, error) {
	s, err := cur.GetString(col)
	if err != nil {
		return lob.NClob{}, err
	}
	return lob.NewNClob(s), nil
}

// GetSQLXML reads column col of the current row as a readable SQLXML value.
func GetSQLXML(cur *cursor.Cursor, col int) (*lob.SQLXML, error) {
	s, err := cur.GetString(col)
	if err != nil {
		return nil, err
	}
	return lob.SQLXMLFrom(s), nil
}

// GetArray reads column col of the current row as an Array. The base type
// is derived from the column type, e.g. "_int4" gives "int4".
// SQL NULL yields nil.
func GetArray(cur *cursor.Cursor, col int) (*array.Array, error) {
	meta, err := cur.Metadata()
	if err != nil {
		return nil, err
	}
	v, err := cur.GetObject(col)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	typeName, _ := meta.ColumnTypeName(col)
	return array.From(baseType(typeName), v)
}

// GetRowID reads column col of the current row as a RowID.
func GetRowID(cur *cursor.Cursor, col int) (rowid.RowID, error) {
	v, err := cur.GetObject(col)
	if err != nil {
		return rowid.RowID{}, err
	}
	return rowid.From(v)
}

func blobOf(v any) (*lob.Blob, error) {
	if v == nil {
		return nil, nil
	}
	b, err := sqlvalue.Bytes(v)
	if err != nil {
		return nil, err
	}
	return lob.NewBlob(b), nil
}

func clobOf(v any) (*lob.Clob, error) {
	if v == nil {
		return nil, nil
	}
	s, err := sqlvalue.String(v)
	if err != nil {
		return nil, err
	}
	return lob.NewClob(s), nil
}

// baseType strips array decoration from a column type name: the Postgres
// "_" prefix and a trailing "[]".
func baseType(typeName string) string {
	t := strings.TrimPrefix(typeName, "_")
	return strings.TrimSuffix(t, "[]")
}
