package harness

import (
	"fmt"
	"sync"
	"testing"

	"github.com/koustreak/sqlconform/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportStore(t *testing.T) {
	s := NewReportStore(2)
	for i := 1; i <= 3; i++ {
		s.Save(&Report{ID: fmt.Sprintf("r%d", i)})
	}

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, "r3", list[0].ID)
	assert.Equal(t, "r2", list[1].ID)

	_, err := s.Get("r1")
	assert.True(t, errs.IsNotFound(err), "oldest report is evicted")

	r, err := s.Get("r2")
	require.NoError(t, err)
	assert.Equal(t, "r2", r.ID)
}

func TestReportStore_SaveTwice(t *testing.T) {
	s := NewReportStore(0)
	s.Save(&Report{ID: "a", Backend: "old"})
	s.Save(&Report{ID: "a", Backend: "new"})

	list := s.List()
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Backend)
}

func TestReportStore_Concurrent(t *testing.T) {
	s := NewReportStore(DefaultReportLimit)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Save(&Report{ID: fmt.Sprintf("r%d", i)})
			_ = s.List()
		}()
	}
	wg.Wait()
	assert.Len(t, s.List(), 20)
}

func TestReport_Count(t *testing.T) {
	rep := &Report{Results: []Result{
		{Suite: "a", Case: "1", Status: StatusPass},
		{Suite: "a", Case: "2", Status: StatusSkip},
		{Suite: "b", Case: "1", Status: StatusPass},
	}}
	assert.Equal(t, 2, rep.Count(StatusPass))
	assert.Equal(t, 1, rep.Count(StatusSkip))
	assert.False(t, rep.Failed())
	assert.Equal(t, "a/2", rep.Results[1].Name())
}
