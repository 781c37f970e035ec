// Package lob implements large-object handles: Blob (bytes), Clob and NClob
// (characters) and SQLXML. Every handle has its own read/write/free
// lifecycle independent of the result set that produced it.
//
// Positions are 1-based. After Free every operation except Free and IsFree
// fails with errs.IsClosed; freeing twice is a no-op.
//
// Handles are not safe for concurrent use.
package lob

import (
	"bytes"
	"io"

	"github.com/koustreak/sqlconform/internal/errs"
)

// Blob is a handle to binary large-object data.
type Blob struct {
	data  []byte
	freed bool
}

// NewBlob returns a Blob holding a copy of b.
func NewBlob(b []byte) *Blob {
	return &Blob{data: append([]byte(nil), b...)}
}

// Length returns the number of bytes.
func (b *Blob) Length() (int64, error) {
	if err := b.check(); err != nil {
		return 0, err
	}
	return int64(len(b.data)), nil
}

// Bytes returns up to n bytes starting at pos. Reading at Length()+1 yields
// an empty slice.
func (b *Blob) Bytes(pos int64, n int) ([]byte, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	start, end, err := span(pos, n, int64(len(b.data)))
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), b.data[start:end]...), nil
}

// SetBytes writes p starting at pos, overwriting existing bytes and
// extending the Blob as needed. pos may be at most Length()+1.
func (b *Blob) SetBytes(pos int64, p []byte) (int, error) {
	if err := b.check(); err != nil {
		return 0, err
	}
	if err := writePos(pos, int64(len(b.data))); err != nil {
		return 0, err
	}
	b.data = overwrite(b.data, int(pos-1), p)
	return len(p), nil
}

// Position returns the 1-based offset of the first occurrence of pattern at
// or after start, or -1 when absent.
func (b *Blob) Position(pattern []byte, start int64) (int64, error) {
	if err := b.check(); err != nil {
		return 0, err
	}
	if start < 1 {
		return 0, errs.InvalidInput("start position must be >= 1")
	}
	if start > int64(len(b.data)) {
		return -1, nil
	}
	i := bytes.Index(b.data[start-1:], pattern)
	if i < 0 {
		return -1, nil
	}
	return start + int64(i), nil
}

// PositionBlob is Position with the pattern taken from another Blob.
func (b *Blob) PositionBlob(pattern *Blob, start int64) (int64, error) {
	p, err := pattern.Bytes(1, int(len(pattern.data)))
	if err != nil {
		return 0, err
	}
	return b.Position(p, start)
}

// Truncate shortens the Blob to n bytes.
func (b *Blob) Truncate(n int64) error {
	if err := b.check(); err != nil {
		return err
	}
	if n < 0 || n > int64(len(b.data)) {
		return errs.InvalidInput("truncate length out of range")
	}
	b.data = b.data[:n]
	return nil
}

// Reader returns a reader over a snapshot of the whole content.
func (b *Blob) Reader() (io.Reader, error) {
	return b.SectionReader(1, len(b.data))
}

// SectionReader returns a reader over a snapshot of n bytes starting at pos.
func (b *Blob) SectionReader(pos int64, n int) (io.Reader, error) {
	p, err := b.Bytes(pos, n)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(p), nil
}

// Writer returns a writer that stores bytes starting at pos. Writes go
// straight to the Blob; they fail once the Blob is freed.
func (b *Blob) Writer(pos int64) (io.WriteCloser, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if err := writePos(pos, int64(len(b.data))); err != nil {
		return nil, err
	}
	return &blobWriter{b: b, pos: pos}, nil
}

// Free releases the content. Freeing twice is a no-op.
func (b *Blob) Free() error {
	b.freed = true
	b.data = nil
	return nil
}

// IsFree reports whether Free has been called.
func (b *Blob) IsFree() bool {
	return b.freed
}

func (b *Blob) check() error {
	if b.freed {
		return errs.Closed("blob")
	}
	return nil
}

type blobWriter struct {
	b      *Blob
	pos    int64
	closed bool
}

func (w *blobWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errs.Closed("blob writer")
	}
	n, err := w.b.SetBytes(w.pos, p)
	w.pos += int64(n)
	return n, err
}

func (w *blobWriter) Close() error {
	w.closed = true
	return nil
}

// --- position helpers shared by Blob and Clob ---

// span validates a 1-based read of n units from pos over size units and
// returns the 0-based [start, end) range, clamped to size.
func span(pos int64, n int, size int64) (int64, int64, error) {
	if pos < 1 || pos > size+1 {
		return 0, 0, errs.InvalidInput("position out of range")
	}
	if n < 0 {
		return 0, 0, errs.InvalidInput("length must not be negative")
	}
	start := pos - 1
	end := size
	if int64(n) < size-start {
		end = start + int64(n)
	}
	return start, end, nil
}

func writePos(pos, size int64) error {
	if pos < 1 || pos > size+1 {
		return errs.InvalidInput("write position out of range")
	}
	return nil
}

func overwrite[T any](dst []T, at int, src []T) []T {
	if need := at + len(src); need > len(dst) {
		dst = append(dst, make([]T, need-len(dst))...)
	}
	copy(dst[at:], src)
	return dst
}
