package lob

import (
	"bytes"
	"io"
	"strings"

	"github.com/koustreak/sqlconform/internal/errs"
)

// SQLXML is an XML value that can be written once and read once.
// A value produced by the database starts readable; one created with
// NewSQLXML starts writable and becomes readable after the write.
type SQLXML struct {
	data     string
	readable bool
	writable bool
	freed    bool
}

// NewSQLXML returns an empty, writable SQLXML value.
func NewSQLXML() *SQLXML {
	return &SQLXML{writable: true}
}

// SQLXMLFrom returns a readable SQLXML holding doc.
func SQLXMLFrom(doc string) *SQLXML {
	return &SQLXML{data: doc, readable: true}
}

// SetString stores doc. It fails if the value was already written.
func (x *SQLXML) SetString(doc string) error {
	if err := x.beginWrite(); err != nil {
		return err
	}
	x.data = doc
	return nil
}

// Writer returns a writer for the document. The value becomes readable
// when the writer is closed.
func (x *SQLXML) Writer() (io.WriteCloser, error) {
	if err := x.beginWrite(); err != nil {
		return nil, err
	}
	x.readable = false
	return &xmlWriter{x: x}, nil
}

// String returns the document. It fails on a second read.
func (x *SQLXML) String() (string, error) {
	if err := x.beginRead(); err != nil {
		return "", err
	}
	return x.data, nil
}

// Reader returns a reader over the document. It fails on a second read.
func (x *SQLXML) Reader() (io.Reader, error) {
	if err := x.beginRead(); err != nil {
		return nil, err
	}
	return strings.NewReader(x.data), nil
}

// Free releases the value. Freeing twice is a no-op.
func (x *SQLXML) Free() error {
	x.freed = true
	x.data = ""
	return nil
}

// IsFree reports whether Free has been called.
func (x *SQLXML) IsFree() bool {
	return x.freed
}

func (x *SQLXML) beginWrite() error {
	if x.freed {
		return errs.Closed("sqlxml")
	}
	if !x.writable {
		return errs.InvalidOperation("sqlxml value is not writable")
	}
	x.writable = false
	x.readable = true
	return nil
}

func (x *SQLXML) beginRead() error {
	if x.freed {
		return errs.Closed("sqlxml")
	}
	if !x.readable {
		return errs.InvalidOperation("sqlxml value is not readable")
	}
	x.readable = false
	return nil
}

type xmlWriter struct {
	x      *SQLXML
	buf    bytes.Buffer
	closed bool
}

func (w *xmlWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errs.Closed("sqlxml writer")
	}
	if w.x.freed {
		return 0, errs.Closed("sqlxml")
	}
	return w.buf.Write(p)
}

func (w *xmlWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.x.freed {
		return nil
	}
	w.x.data = w.buf.String()
	w.x.readable = true
	return nil
}
