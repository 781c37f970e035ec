package harness

import (
	"sync"

	"github.com/koustreak/sqlconform/internal/errs"
)

// DefaultReportLimit is how many reports a ReportStore keeps by default.
const DefaultReportLimit = 50

// ReportStore keeps the most recent reports in memory. It is safe for
// concurrent use.
type ReportStore struct {
	mu      sync.RWMutex
	limit   int
	order   []string
	reports map[string]*Report
}

// NewReportStore keeps at most limit reports, dropping the oldest first.
// A limit below 1 uses DefaultReportLimit.
func NewReportStore(limit int) *ReportStore {
	if limit < 1 {
		limit = DefaultReportLimit
	}
	return &ReportStore{limit: limit, reports: make(map[string]*Report)}
}

func (s *ReportStore) Save(r *Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.reports[r.ID] = r

	for len(s.order) > s.limit {
		delete(s.reports, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *ReportStore) Get(id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, errs.New(errs.ErrKindNotFound, "report "+id+" not found")
	}
	return r, nil
}

// List returns the stored reports, newest first.
func (s *ReportStore) List() []*Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Report, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.reports[s.order[i]])
	}
	return out
}
