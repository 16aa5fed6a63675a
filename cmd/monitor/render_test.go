package main

import (
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"

	"valvenet/internal/domain"
)

func TestRenderRunsTable(t *testing.T) {
	table := tview.NewTable()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	runs := []domain.Run{
		{ID: "0123456789abcdef", Label: "canonical", Status: domain.RunStatusSolved, SingleScore: 1651, DualScore: 1707, UpdatedAt: now},
		{ID: "fedcba9876543210", Label: "broken", Status: domain.RunStatusFailed, UpdatedAt: now},
	}
	renderRunsTable(table, runs, "fedcba9876543210")

	if got := table.GetRowCount(); got != 3 {
		t.Fatalf("rows=%d want=3", got)
	}
	if got := table.GetCell(1, 0).Text; got != "01234567" {
		t.Fatalf("short id=%q", got)
	}
	if got := table.GetCell(1, 2).Text; got != "1651" {
		t.Fatalf("single cell=%q", got)
	}
	if got := table.GetCell(2, 3).Text; got != "-" {
		t.Fatalf("failed run dual cell=%q want=-", got)
	}
	if row, _ := table.GetSelection(); row != 2 {
		t.Fatalf("selected row=%d want=2", row)
	}
}

func TestRenderRunDetail(t *testing.T) {
	solved := renderRunDetail(domain.Run{
		ID: "abc", Status: domain.RunStatusSolved, SingleScore: 1651, DualScore: 1707,
		FlowValves: 6, StatesExpanded: 1200, DurationMS: 4,
	})
	for _, want := range []string{"[green]1651[-]", "[green]1707[-]", "6 with flow", "1200 states in 4ms"} {
		if !strings.Contains(solved, want) {
			t.Fatalf("detail missing %q:\n%s", want, solved)
		}
	}

	cached := renderRunDetail(domain.Run{ID: "abc", Status: domain.RunStatusSolved, CacheHit: true})
	if !strings.Contains(cached, "reused earlier result") {
		t.Fatalf("expected cache note:\n%s", cached)
	}

	failed := renderRunDetail(domain.Run{ID: "abc", Status: domain.RunStatusFailed, LastError: "line 1: malformed [record]"})
	if strings.Contains(failed, "single:") {
		t.Fatalf("failed run should not show scores:\n%s", failed)
	}
	if !strings.Contains(failed, "malformed") {
		t.Fatalf("expected error line:\n%s", failed)
	}
}

func TestRenderEventsPayloadSummary(t *testing.T) {
	out := renderEvents([]domain.RunEvent{{
		Actor:   "orchestrator",
		Action:  "run_solved",
		Reason:  "search finished",
		Payload: []byte(`{"single":1651,"dual":1707}`),
	}})
	if !strings.Contains(out, "payload: dual=1707, single=1651") {
		t.Fatalf("unexpected events rendering:\n%s", out)
	}
	if renderEvents(nil) != "No events" {
		t.Fatalf("expected empty marker")
	}
	if payloadSummary([]byte("{}")) != "" {
		t.Fatalf("empty payload should produce no summary")
	}
}

func TestEmbeddedArgs(t *testing.T) {
	args, err := embeddedArgs("http://localhost:8091", "data/x.db", "inputs")
	if err != nil {
		t.Fatalf("embeddedArgs: %v", err)
	}
	want := "--addr :8091 --db data/x.db --inputs inputs"
	if got := strings.Join(args, " "); got != want {
		t.Fatalf("args=%q want=%q", got, want)
	}
	if _, err := embeddedArgs("http://localhost", "a", "b"); err == nil {
		t.Fatalf("expected error for addr without port")
	}
}
