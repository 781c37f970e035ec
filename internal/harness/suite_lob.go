package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/koustreak/sqlconform/internal/cursor"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/statement"
)

type clobPosition struct {
	search string
	start  int64
	want   int64
}

// positions in "Test"
var clobPositions = []clobPosition{
	{"Test", 1, 1},
	{"est", 1, 2},
	{"st", 2, 3},
	{"t", 2, 4},
	{"est", 3, -1},
	{"x", 1, -1},
	{"T", 5, -1},
}

func lobCases(*Env) []Case {
	return []Case{
		{Name: "clob positions", Run: clobPositionsCase},
		{Name: "clob edit", Run: clobEditCase},
		{Name: "blob round trip", Run: blobRoundTripCase},
		{Name: "free", Run: lobFreeCase},
		{Name: "sqlxml one-shot", Run: sqlxmlCase},
		{Name: "store round trip", Run: lobStoreCase},
		{Name: "clob from column", Run: clobColumnCase},
	}
}

func clobPositionsCase(context.Context, *Env) error {
	c := lob.NewClob("Test")
	defer c.Free()

	n, err := c.Length()
	if err != nil {
		return err
	}
	if err := expectEqual(n, int64(4), "length"); err != nil {
		return err
	}
	for _, p := range clobPositions {
		got, err := c.Position(p.search, p.start)
		if err != nil {
			return err
		}
		if err := expectEqual(got, p.want, fmt.Sprintf("position(%q, %d)", p.search, p.start)); err != nil {
			return err
		}
	}
	_, err = c.Position("T", 0)
	return expectKind(err, errs.ErrKindInvalidInput, "position at 0")
}

func clobEditCase(context.Context, *Env) error {
	c := lob.NewClob("héllo")
	defer c.Free()

	if _, err := c.SetString(6, " wörld"); err != nil {
		return err
	}
	s, err := c.SubString(2, 4)
	if err != nil {
		return err
	}
	if err := expectEqual(s, "éllo", "substring"); err != nil {
		return err
	}

	w, err := c.Writer(1)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, "J"); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if err := c.Truncate(5); err != nil {
		return err
	}
	s, err = c.String()
	if err != nil {
		return err
	}
	return expectEqual(s, "Jéllo", "content")
}

func blobRoundTripCase(context.Context, *Env) error {
	b := lob.NewBlob(nil)
	defer b.Free()

	w, err := b.Writer(1)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	if _, err := b.SetBytes(5, []byte{0x05}); err != nil {
		return err
	}

	r, err := b.SectionReader(2, 3)
	if err != nil {
		return err
	}
	got, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if err := expectEqual(got, []byte{0x02, 0x03, 0x04}, "section"); err != nil {
		return err
	}

	pos, err := b.Position([]byte{0x04, 0x05}, 1)
	if err != nil {
		return err
	}
	if err := expectEqual(pos, int64(4), "position"); err != nil {
		return err
	}
	_, err = b.Bytes(0, 1)
	return expectKind(err, errs.ErrKindInvalidInput, "bytes at 0")
}

func lobFreeCase(context.Context, *Env) error {
	b := lob.NewBlob([]byte("x"))
	c := lob.NewClob("x")
	nc := lob.NewNClob("x")
	for _, free := range []func() error{b.Free, c.Free, nc.Free, b.Free} {
		if err := free(); err != nil {
			return err
		}
	}

	_, err := b.Length()
	if err := expectKind(err, errs.ErrKindClosed, "blob length after free"); err != nil {
		return err
	}
	_, err = c.SubString(1, 1)
	if err := expectKind(err, errs.ErrKindClosed, "clob substring after free"); err != nil {
		return err
	}
	_, err = nc.Position("x", 1)
	return expectKind(err, errs.ErrKindClosed, "nclob position after free")
}

func sqlxmlCase(context.Context, *Env) error {
	x := lob.NewSQLXML()
	defer x.Free()

	_, err := x.String()
	if err := expectKind(err, errs.ErrKindInvalidOperation, "read before write"); err != nil {
		return err
	}
	if err := x.SetString("<a/>"); err != nil {
		return err
	}
	err = x.SetString("<b/>")
	if err := expectKind(err, errs.ErrKindInvalidOperation, "second write"); err != nil {
		return err
	}
	doc, err := x.String()
	if err != nil {
		return err
	}
	if err := expectEqual(doc, "<a/>", "document"); err != nil {
		return err
	}
	_, err = x.String()
	return expectKind(err, errs.ErrKindInvalidOperation, "second read")
}

func lobStoreCase(ctx context.Context, env *Env) error {
	payload := []byte("blob content persisted by the run")
	if err := lob.SaveBlob(ctx, env.LOBs, "case/blob", lob.NewBlob(payload)); err != nil {
		return err
	}
	if err := lob.SaveClob(ctx, env.LOBs, "case/clob", lob.NewClob("grüße")); err != nil {
		return err
	}

	b, err := lob.LoadBlob(ctx, env.LOBs, "case/blob")
	if err != nil {
		return err
	}
	got, err := b.Bytes(1, len(payload))
	if err != nil {
		return err
	}
	if err := expectEqual(got, payload, "loaded blob"); err != nil {
		return err
	}

	c, err := lob.LoadClob(ctx, env.LOBs, "case/clob")
	if err != nil {
		return err
	}
	n, err := c.Length()
	if err != nil {
		return err
	}
	if err := expectEqual(n, int64(5), "loaded clob length"); err != nil {
		return err
	}

	_, err = lob.LoadBlob(ctx, env.LOBs, "case/missing")
	return expectKind(err, errs.ErrKindNotFound, "missing key")
}

// clobColumnCase reads a fixture label through the Clob accessor and checks
// that the Clob outlives the cursor.
func clobColumnCase(ctx context.Context, env *Env) error {
	cur, err := env.OpenFixture(ctx, cursor.DefaultOptions())
	if err != nil {
		return err
	}
	if _, err := cur.Next(); err != nil {
		return err
	}
	c, err := statement.GetClob(cur, 2)
	if err != nil {
		return err
	}
	if err := cur.Close(); err != nil {
		return err
	}
	s, err := c.String()
	if err != nil {
		return err
	}
	return expectEqual(s, Label(1), "clob content")
}
