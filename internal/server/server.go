// Package server exposes conformance runs over HTTP.
//
//	GET  /healthz        liveness
//	GET  /reports        stored reports, newest first
//	GET  /reports/{id}   one report
//	POST /runs           run the suites and store the report
//
// Only one run executes at a time; a second POST /runs while one is in
// progress gets 409.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/koustreak/sqlconform/internal/harness"
	"github.com/koustreak/sqlconform/internal/logger"
)

// Runner executes one conformance run.
type Runner interface {
	Run(ctx context.Context) (*harness.Report, error)
}

type Server struct {
	runner  Runner
	reports *harness.ReportStore
	log     *logger.Logger
	router  chi.Router

	running sync.Mutex
}

func New(runner Runner, reports *harness.ReportStore, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if reports == nil {
		reports = harness.NewReportStore(harness.DefaultReportLimit)
	}
	s := &Server{runner: runner, reports: reports, log: log}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Infof("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, "server failed", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	r.Route("/reports", func(r chi.Router) {
		r.Get("/", s.listReports)
		r.Get("/{id}", s.getReport)
	})
	r.Post("/runs", s.startRun)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		reqLog := s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()
		next.ServeHTTP(ww, r.WithContext(reqLog.WithContext(r.Context())))

		s.log.HTTPEvent().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// reportSummary is a report without its per-case results.
type reportSummary struct {
	ID         string    `json:"id"`
	Backend    string    `json:"backend"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
}

func summarize(r *harness.Report) reportSummary {
	return reportSummary{
		ID:         r.ID,
		Backend:    r.Backend,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Passed:     r.Count(harness.StatusPass),
		Failed:     r.Count(harness.StatusFail),
		Skipped:    r.Count(harness.StatusSkip),
	}
}

func (s *Server) listReports(w http.ResponseWriter, _ *http.Request) {
	reports := s.reports.List()
	out := make([]reportSummary, len(reports))
	for i, r := range reports {
		out[i] = summarize(r)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.reports.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		writeJSON(w, http.StatusConflict, errorBody{Error: "a run is already in progress"})
		return
	}
	defer s.running.Unlock()

	rep, err := s.runner.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Save(rep)
	logger.FromContext(r.Context()).InfoWith("run stored", map[string]interface{}{
		"report": rep.ID,
		"failed": rep.Count(harness.StatusFail),
	})
	writeJSON(w, http.StatusCreated, rep)
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).ErrorWith("request failed", err, nil)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindNotFound:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindPermissionDenied:
		return http.StatusForbidden
	case errs.ErrKindConnectionFailed:
		return http.StatusBadGateway
	case errs.ErrKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
