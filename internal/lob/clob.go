package lob

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/koustreak/sqlconform/internal/errs"
)

// Clob is a handle to character large-object data. Lengths and positions
// count Unicode code points.
type Clob struct {
	data     []rune
	national bool
	freed    bool
}

// NClob is a Clob holding national character set data.
type NClob struct {
	*Clob
}

// NewClob returns a Clob holding s.
func NewClob(s string) *Clob {
	return &Clob{data: []rune(s)}
}

// NewNClob returns an NClob holding s.
func NewNClob(s string) NClob {
	return NClob{Clob: &Clob{data: []rune(s), national: true}}
}

// IsNational reports whether the Clob was created as an NClob.
func (c *Clob) IsNational() bool {
	return c.national
}

// Length returns the number of characters.
func (c *Clob) Length() (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	return int64(len(c.data)), nil
}

// SubString returns up to n characters starting at pos.
func (c *Clob) SubString(pos int64, n int) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	start, end, err := span(pos, n, int64(len(c.data)))
	if err != nil {
		return "", err
	}
	return string(c.data[start:end]), nil
}

// String returns the whole content.
func (c *Clob) String() (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	return string(c.data), nil
}

// SetString writes s starting at pos, overwriting and extending as needed.
// It returns the number of characters written.
func (c *Clob) SetString(pos int64, s string) (int, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	if err := writePos(pos, int64(len(c.data))); err != nil {
		return 0, err
	}
	r := []rune(s)
	c.data = overwrite(c.data, int(pos-1), r)
	return len(r), nil
}

// Position returns the 1-based offset of the first occurrence of search at
// or after start, or -1 when absent.
func (c *Clob) Position(search string, start int64) (int64, error) {
	if err := c.check(); err != nil {
		return 0, err
	}
	if start < 1 {
		return 0, errs.InvalidInput("start position must be >= 1")
	}
	if start > int64(len(c.data)) {
		return -1, nil
	}
	tail := string(c.data[start-1:])
	i := strings.Index(tail, search)
	if i < 0 {
		return -1, nil
	}
	return start + int64(utf8.RuneCountInString(tail[:i])), nil
}

// PositionClob is Position with the search string taken from another Clob.
func (c *Clob) PositionClob(search *Clob, start int64) (int64, error) {
	s, err := search.String()
	if err != nil {
		return 0, err
	}
	return c.Position(s, start)
}

// Truncate shortens the Clob to n characters.
func (c *Clob) Truncate(n int64) error {
	if err := c.check(); err != nil {
		return err
	}
	if n < 0 || n > int64(len(c.data)) {
		return errs.InvalidInput("truncate length out of range")
	}
	c.data = c.data[:n]
	return nil
}

// Reader returns a UTF-8 reader over a snapshot of the content.
func (c *Clob) Reader() (io.Reader, error) {
	s, err := c.String()
	if err != nil {
		return nil, err
	}
	return strings.NewReader(s), nil
}

// Writer returns a writer that decodes UTF-8 and stores characters starting
// at pos. A rune split across Write calls is held until it completes; an
// incomplete rune left at Close is stored as U+FFFD.
func (c *Clob) Writer(pos int64) (io.WriteCloser, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if err := writePos(pos, int64(len(c.data))); err != nil {
		return nil, err
	}
	return &clobWriter{c: c, pos: pos}, nil
}

// Free releases the content. Freeing twice is a no-op.
func (c *Clob) Free() error {
	c.freed = true
	c.data = nil
	return nil
}

// IsFree reports whether Free has been called.
func (c *Clob) IsFree() bool {
	return c.freed
}

func (c *Clob) check() error {
	if c.freed {
		if c.national {
			return errs.Closed("nclob")
		}
		return errs.Closed("clob")
	}
	return nil
}

type clobWriter struct {
	c      *Clob
	pos    int64
	carry  []byte
	closed bool
}

func (w *clobWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errs.Closed("clob writer")
	}
	buf := append(w.carry, p...)
	cut := len(buf)
	for cut > 0 && !utf8.FullRune(buf[lastRuneStart(buf[:cut]):cut]) {
		cut = lastRuneStart(buf[:cut])
	}
	n, err := w.c.SetString(w.pos, string(buf[:cut]))
	if err != nil {
		return 0, err
	}
	w.pos += int64(n)
	w.carry = append([]byte(nil), buf[cut:]...)
	return len(p), nil
}

func (w *clobWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if len(w.carry) == 0 {
		return nil
	}
	_, err := w.c.SetString(w.pos, string(utf8.RuneError))
	w.carry = nil
	return err
}

// lastRuneStart returns the index where the final (possibly partial) rune
// of b begins.
func lastRuneStart(b []byte) int {
	i := len(b) - 1
	for i > 0 && !utf8.RuneStart(b[i]) && len(b)-i < utf8.UTFMax {
		i--
	}
	return max(i, 0)
}
