package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/koustreak/sqlconform/internal/harness"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintReport(t *testing.T) {
	color.NoColor = true
	start := time.Now().Add(-time.Minute)
	rep := &harness.Report{
		ID:         "run-1",
		Backend:    "PostgreSQL",
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Results: []harness.Result{
			{Suite: "cursor", Case: "forward", Status: harness.StatusPass, Duration: 2 * time.Millisecond},
			{Suite: "array", Case: "from column", Status: harness.StatusSkip, Error: "no arrays"},
			{Suite: "lob", Case: "free", Status: harness.StatusFail, Error: "still open"},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, rep)
	out := buf.String()

	assert.Contains(t, out, "run run-1 against PostgreSQL (started 1 minute ago)")
	assert.Contains(t, out, "PASS  cursor/forward (2ms)")
	assert.Contains(t, out, "SKIP  array/from column: no arrays")
	assert.Contains(t, out, "FAIL  lob/free: still open")
	assert.Contains(t, out, "1 passed, 1 failed, 1 skipped in 1.5s")
}

func TestPrintStates(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printStates(&buf, []string{"08001", "08003", "23505"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, []string{"STATE", "CATEGORY", "KIND", "TRANSIENT"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"08001", "transient_connection", "connection_failed", "true"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"08003", "non_transient_connection", "connection_failed", "false"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"23505", "integrity_constraint_violation", "integrity", "false"}, strings.Fields(lines[3]))
}
