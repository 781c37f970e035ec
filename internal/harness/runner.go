package harness

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/sqlconform/internal/database"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/filestore"
	"github.com/koustreak/sqlconform/internal/lob"
	"github.com/koustreak/sqlconform/internal/logger"
)

// Status is the outcome of one case.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result is the outcome of one case.
type Result struct {
	Suite    string        `json:"suite"`
	Case     string        `json:"case"`
	Status   Status        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Name returns "suite/case".
func (r Result) Name() string {
	return r.Suite + "/" + r.Case
}

// Report is the outcome of one run.
type Report struct {
	ID           string                `json:"id"`
	Backend      string                `json:"backend"`
	Capabilities database.Capabilities `json:"capabilities"`
	StartedAt    time.Time             `json:"started_at"`
	FinishedAt   time.Time             `json:"finished_at"`
	Results      []Result              `json:"results"`
}

// Count returns how many results have status s.
func (r *Report) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// Failed reports whether any case failed.
func (r *Report) Failed() bool {
	return r.Count(StatusFail) > 0
}

// Runner executes the suites against one backend.
type Runner struct {
	cfg   *Config
	open  Opener
	files filestore.Store
	log   *logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithFileStore persists LOB content in fs instead of memory.
func WithFileStore(fs filestore.Store) Option {
	return func(r *Runner) {
		r.files = fs
	}
}

func NewRunner(cfg *Config, open Opener, log *logger.Logger, opts ...Option) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	r := &Runner{cfg: cfg, open: open, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run opens the database, seeds the fixture, runs every selected case and
// releases everything it opened. A case failure is recorded in the report;
// the error return is for failures that prevent the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	suites, err := r.selected()
	if err != nil {
		return nil, err
	}

	rep := &Report{ID: uuid.NewString(), StartedAt: time.Now().UTC()}
	log := r.log.Resource("run", rep.ID)

	f := NewFactory(r.open, log)
	defer func() {
		if err := f.CloseAll(ctx); err != nil {
			log.ErrorWith("failed to close run resources", err, nil)
		}
	}()

	db, err := f.DB(ctx)
	if err != nil {
		return nil, err
	}
	caps := db.Capabilities()
	rep.Backend = caps.Product
	rep.Capabilities = caps

	fx := NewFixture(r.cfg.Fixture, db.Dialect(), log)
	if err := fx.Setup(ctx, db); err != nil {
		return nil, err
	}
	defer func() {
		if err := fx.Teardown(ctx, db); err != nil {
			log.ErrorWith("failed to drop fixture", err, nil)
		}
	}()

	lobs, cleanup, err := r.lobStore(ctx, rep.ID, log)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	env := &Env{
		Caps:    caps,
		Expect:  r.cfg.Expect,
		Dialect: db.Dialect(),
		Fixture: fx,
		Factory: f,
		LOBs:    lobs,
		Log:     log,
	}
	for _, s := range suites {
		for _, c := range s.Cases(env) {
			rep.Results = append(rep.Results, runCase(ctx, env, s.Name, c))
		}
	}
	rep.FinishedAt = time.Now().UTC()

	log.InfoWith("run finished", map[string]interface{}{
		"backend":  rep.Backend,
		"passed":   rep.Count(StatusPass),
		"failed":   rep.Count(StatusFail),
		"skipped":  rep.Count(StatusSkip),
		"duration": rep.FinishedAt.Sub(rep.StartedAt).String(),
	})
	return rep, nil
}

func runCase(ctx context.Context, env *Env, suite string, c Case) Result {
	start := time.Now()
	err := c.Run(ctx, env)
	res := Result{Suite: suite, Case: c.Name, Status: StatusPass, Duration: time.Since(start)}

	switch {
	case errors.Is(err, ErrSkipped):
		res.Status = StatusSkip
		res.Error = err.Error()
	case err != nil:
		res.Status = StatusFail
		res.Error = err.Error()
		env.Log.With().Str("case", res.Name()).Err(err).Logger().Warn("case failed")
	default:
		env.Log.With().Str("case", res.Name()).Logger().Debug("case passed")
	}
	return res
}

func (r *Runner) selected() ([]Suite, error) {
	all := Suites()
	if len(r.cfg.Suites) == 0 {
		return all, nil
	}
	var out []Suite
	for _, name := range r.cfg.Suites {
		i := slices.IndexFunc(all, func(s Suite) bool { return s.Name == name })
		if i < 0 {
			return nil, errs.InvalidInput(fmt.Sprintf("unknown suite %q", name))
		}
		out = append(out, all[i])
	}
	return out, nil
}

// lobStore returns the LOB store for a run and a func that removes what the
// run stored.
func (r *Runner) lobStore(ctx context.Context, runID string, log *logger.Logger) (lob.Store, func(), error) {
	if r.files == nil {
		return lob.NewMemStore(), func() {}, nil
	}
	bucket := r.cfg.FileStore.Bucket
	if bucket == "" {
		bucket = filestore.DefaultBucket
	}
	if err := r.files.EnsureBucket(ctx, bucket); err != nil {
		return nil, nil, err
	}
	store := lob.NewObjectStore(r.files, bucket, path.Join("runs", runID), log)
	return store, func() {
		n, err := store.Purge(ctx)
		if err != nil {
			log.ErrorWith("failed to purge lob objects", err, nil)
			return
		}
		log.Debugf("purged %d lob objects", n)
	}, nil
}
