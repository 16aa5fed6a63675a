package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"valvenet/internal/domain"
)

func renderRunsTable(table *tview.Table, runs []domain.Run, selectedRunID string) {
	table.Clear()
	headers := []string{"Run", "Status", "Single", "Dual", "Updated", "Label"}
	for i, h := range headers {
		table.SetCell(0, i, tview.NewTableCell(h).SetSelectable(false).SetAttributes(tcell.AttrBold))
	}
	for i, r := range runs {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(shortID(r.ID)))
		table.SetCell(row, 1, tview.NewTableCell(string(r.Status)).SetTextColor(statusColor(r.Status)))
		table.SetCell(row, 2, tview.NewTableCell(scoreCell(r, r.SingleScore)).SetAlign(tview.AlignRight))
		table.SetCell(row, 3, tview.NewTableCell(scoreCell(r, r.DualScore)).SetAlign(tview.AlignRight))
		table.SetCell(row, 4, tview.NewTableCell(r.UpdatedAt.Format("15:04:05")))
		table.SetCell(row, 5, tview.NewTableCell(trimLine(r.Label, 48)))
		if r.ID == selectedRunID {
			table.Select(row, 0)
		}
	}
}

func statusColor(status domain.RunStatus) tcell.Color {
	switch status {
	case domain.RunStatusSolved:
		return tcell.ColorGreen
	case domain.RunStatusFailed:
		return tcell.ColorRed
	case domain.RunStatusSolving:
		return tcell.ColorYellow
	default:
		return tview.Styles.PrimaryTextColor
	}
}

func scoreCell(r domain.Run, score int) string {
	if r.Status != domain.RunStatusSolved {
		return "-"
	}
	return fmt.Sprintf("%d", score)
}

func renderRunDetail(r domain.Run) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("id:        %s\n", r.ID))
	b.WriteString(fmt.Sprintf("label:     %s\n", r.Label))
	b.WriteString(fmt.Sprintf("source:    %s\n", r.Source))
	b.WriteString(fmt.Sprintf("status:    %s\n", r.Status))
	b.WriteString(fmt.Sprintf("checksum:  %s\n", shortID(r.Checksum)))
	if r.Status == domain.RunStatusSolved {
		b.WriteString(fmt.Sprintf("single:    [green]%d[-]\n", r.SingleScore))
		b.WriteString(fmt.Sprintf("dual:      [green]%d[-]\n", r.DualScore))
		b.WriteString(fmt.Sprintf("valves:    %d with flow\n", r.FlowValves))
		if r.CacheHit {
			b.WriteString("search:    reused earlier result\n")
		} else {
			b.WriteString(fmt.Sprintf("search:    %d states in %dms\n", r.StatesExpanded, r.DurationMS))
		}
	}
	if r.LastError != "" {
		b.WriteString("error:     [red]" + tview.Escape(trimLine(r.LastError, 160)) + "[-]\n")
	}
	return b.String()
}

func renderEvents(items []domain.RunEvent) string {
	if len(items) == 0 {
		return "No events"
	}
	var b strings.Builder
	for _, e := range items {
		b.WriteString(fmt.Sprintf(
			"[%s] %s %s\n  reason: %s\n",
			e.CreatedAt.Format("15:04:05"),
			e.Actor,
			e.Action,
			tview.Escape(trimLine(e.Reason, 100)),
		))
		if detail := payloadSummary(e.Payload); detail != "" {
			b.WriteString("  payload: " + tview.Escape(trimLine(detail, 160)) + "\n")
		}
	}
	return b.String()
}

func renderInputs(items []string) string {
	if len(items) == 0 {
		return "No inputs under the inputs root"
	}
	return strings.Join(items, "\n")
}

func payloadSummary(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || trimmed == "{}" || trimmed == "null" {
		return ""
	}

	var kv map[string]any
	if err := json.Unmarshal(payload, &kv); err == nil {
		keys := make([]string, 0, len(kv))
		for k := range kv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, kv[k]))
		}
		return strings.Join(parts, ", ")
	}
	return trimmed
}

func trimLine(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

func shortID(v string) string {
	if len(v) <= 8 {
		return v
	}
	return v[:8]
}
