package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"valvenet/internal/domain"
)

func init() {
	// Users can disable colors with NO_COLOR.
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		green.Printf("✓ %s", msg)
	} else {
		green.Print(msg)
	}
}

func Info(format string, a ...any) {
	fmt.Printf(format, a...)
}

func Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		yellow.Printf("⚠️  %s", msg)
	} else {
		yellow.Print(msg)
	}
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Printf("→ %s", fmt.Sprintf(format, a...))
}

// Error prints a titled error with suggestions to stderr and returns a plain
// error for cobra, which is configured not to print it again.
func Error(title string, explanation string, suggestions []string) error {
	red.Fprintf(os.Stderr, "%s\n\n", title)
	if explanation != "" {
		fmt.Fprintf(os.Stderr, "%s\n", explanation)
	}
	if len(suggestions) > 0 {
		fmt.Fprintf(os.Stderr, "\n")
		if len(suggestions) == 1 {
			fmt.Fprintf(os.Stderr, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(os.Stderr, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, suggestion)
			}
		}
	}
	return fmt.Errorf("%s", title)
}

// FormatRuns writes runs as a table and returns how many were written.
func FormatRuns(w io.Writer, runs []domain.Run) int {
	if len(runs) == 0 {
		fmt.Fprintf(w, "No runs found\n")
		return 0
	}

	fmt.Fprintf(w, "%-10s %-20s %-8s %7s %7s %6s %s\n",
		"ID", "LABEL", "STATUS", "SINGLE", "DUAL", "CACHE", "CREATED")
	fmt.Fprintf(w, "%-10s %-20s %-8s %7s %7s %6s %s\n",
		"----------", "--------------------", "--------", "-------", "-------", "------", "--------------------")
	for _, r := range runs {
		cache := "no"
		if r.CacheHit {
			cache = "yes"
		}
		fmt.Fprintf(w, "%-10s %-20s %-8s %7d %7d %6s %s\n",
			shortID(r.ID),
			truncate(r.Label, 20),
			r.Status,
			r.SingleScore,
			r.DualScore,
			cache,
			r.CreatedAt.Format(time.RFC3339),
		)
	}

	noun := "run"
	if len(runs) != 1 {
		noun = "runs"
	}
	fmt.Fprintf(w, "\n%d %s found\n", len(runs), noun)
	return len(runs)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
