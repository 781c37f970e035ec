package harness

import (
	"context"
	"fmt"

	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/logger"
)

// Fixture is the table the cursor suites read: Rows rows with id 1..Rows
// and label "row-<id>".
type Fixture struct {
	cfg     FixtureConfig
	dialect database.Dialect
	log     *logger.Logger
}

func NewFixture(cfg FixtureConfig, d database.Dialect, log *logger.Logger) *Fixture {
	if log == nil {
		log = logger.Nop()
	}
	return &Fixture{cfg: cfg, dialect: d, log: log.Resource("table", cfg.Table)}
}

func (f *Fixture) Table() string { return f.cfg.Table }
func (f *Fixture) Rows() int     { return f.cfg.Rows }

// Label returns the label seeded for id.
func Label(id int) string {
	return fmt.Sprintf("row-%d", id)
}

// Setup creates the table when missing and replaces its content with the
// seed rows.
func (f *Fixture) Setup(ctx context.Context, db database.DB) error {
	exists, err := db.TableExists(ctx, f.cfg.Table)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := db.Exec(ctx, f.createSQL()); err != nil {
			return err
		}
		f.log.Debug("fixture table created")
	}
	if _, err := db.Exec(ctx, f.clearSQL()); err != nil {
		return err
	}

	sql, args, err := f.seedSQL()
	if err != nil {
		return err
	}
	n, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	f.log.With().Int("rows", int(n)).Logger().Info("fixture seeded")
	return nil
}

// Teardown drops the table unless the config keeps it.
func (f *Fixture) Teardown(ctx context.Context, db database.DB) error {
	if f.cfg.Keep {
		return nil
	}
	_, err := db.Exec(ctx, f.dropSQL())
	return err
}

// SelectSQL reads every fixture row ordered by id.
func (f *Fixture) SelectSQL() (string, error) {
	sql, _, err := database.Select(f.cfg.Table, f.dialect).
		Columns("id", "label").
		OrderBy("id", database.Asc).
		Build()
	return sql, err
}

// SelectByIDSQL reads one fixture row; the id is its only parameter.
func (f *Fixture) SelectByIDSQL() (string, error) {
	sql, _, err := database.Select(f.cfg.Table, f.dialect).
		Columns("id", "label").
		Where("id", "=", 0).
		Build()
	return sql, err
}

// InsertSQL inserts one row; used to provoke a duplicate-key error.
func (f *Fixture) InsertSQL(id int) (string, []any, error) {
	return database.Insert(f.cfg.Table, f.dialect).
		Columns("id", "label").
		Values(int64(id), Label(id)).
		Build()
}

func (f *Fixture) createSQL() string {
	return fmt.Sprintf("CREATE TABLE %s (%s BIGINT PRIMARY KEY, %s VARCHAR(64) NOT NULL)",
		f.dialect.QuoteIdent(f.cfg.Table), f.dialect.QuoteIdent("id"), f.dialect.QuoteIdent("label"))
}

func (f *Fixture) clearSQL() string {
	return "DELETE FROM " + f.dialect.QuoteIdent(f.cfg.Table)
}

func (f *Fixture) dropSQL() string {
	return "DROP TABLE IF EXISTS " + f.dialect.QuoteIdent(f.cfg.Table)
}

func (f *Fixture) seedSQL() (string, []any, error) {
	b := database.Insert(f.cfg.Table, f.dialect).Columns("id", "label")
	for id := 1; id <= f.cfg.Rows; id++ {
		b.Values(int64(id), Label(id))
	}
	return b.Build()
}
