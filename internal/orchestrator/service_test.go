package orchestrator

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"valvenet/internal/cache"
	"valvenet/internal/domain"
	"valvenet/internal/fs"
	"valvenet/internal/messaging/inproc"
	sqlitestore "valvenet/internal/store/sqlite"
)

type harness struct {
	svc    *Service
	store  *sqlitestore.Store
	events <-chan domain.RunEvent
	root   string
}

func newHarness(t *testing.T, withCache bool) harness {
	t.Helper()
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	var c Cache
	if withCache {
		mr := miniredis.RunT(t)
		rc := cache.New(&redis.Options{Addr: mr.Addr()}, time.Hour)
		t.Cleanup(func() { _ = rc.Close() })
		c = rc
	}

	root := t.TempDir()
	gw, err := fs.NewGateway(root, 0)
	require.NoError(t, err)

	bus := inproc.New(64)
	events := bus.Register("test")

	svc := New(store, c, bus, gw, Config{}, log.New(io.Discard, "", 0))
	return harness{svc: svc, store: store, events: events, root: root}
}

func drainActions(ch <-chan domain.RunEvent) []string {
	var actions []string
	for {
		select {
		case evt := <-ch:
			actions = append(actions, evt.Action)
		default:
			return actions
		}
	}
}

func TestSubmitRunSolvesBothModes(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	run, err := h.svc.SubmitRun(ctx, SubmitRunInput{Label: "canonical", Input: canonicalInput})
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSolved, run.Status)
	assert.Equal(t, 1651, run.SingleScore)
	assert.Equal(t, 1707, run.DualScore)
	assert.Equal(t, 6, run.FlowValves)
	assert.False(t, run.CacheHit)
	assert.Positive(t, run.StatesExpanded)

	assert.Equal(t, []string{"run_created", "run_solving", "run_solved"}, drainActions(h.events))

	events, err := h.svc.ListRunEvents(ctx, run.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "run_solved", events[2].Action)
}

func TestSubmitRunReusesCachedScores(t *testing.T) {
	for _, withCache := range []bool{true, false} {
		h := newHarness(t, withCache)
		ctx := context.Background()

		first, err := h.svc.SubmitRun(ctx, SubmitRunInput{Input: canonicalInput})
		require.NoError(t, err)

		// Same records, different whitespace.
		reformatted := "\n  " + strings.ReplaceAll(canonicalInput, "\n", "\n\n  ")
		second, err := h.svc.SubmitRun(ctx, SubmitRunInput{Input: reformatted})
		require.NoError(t, err)

		assert.Equal(t, first.Checksum, second.Checksum)
		assert.True(t, second.CacheHit, "withCache=%t", withCache)
		assert.Equal(t, first.SingleScore, second.SingleScore)
		assert.Equal(t, first.DualScore, second.DualScore)
		assert.Equal(t, domain.RunStatusSolved, second.Status)

		runs, err := h.svc.ListRuns(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, runs, 2)
	}
}

func TestSubmitRunInvalidInput(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	run, err := h.svc.SubmitRun(ctx, SubmitRunInput{Input: "Valve AA has flow rate=0; tunnel leads to valve ZZ"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, domain.RunStatusFailed, run.Status)
	assert.Contains(t, run.LastError, "unknown valve")
	assert.Equal(t, []string{"run_created", "run_failed"}, drainActions(h.events))

	_, err = h.svc.SubmitRun(ctx, SubmitRunInput{Input: "   "})
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestSubmitRunFromPath(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(h.root, "example.txt"), []byte(canonicalInput), 0o644))

	run, err := h.svc.SubmitRun(ctx, SubmitRunInput{Path: "example.txt"})
	require.NoError(t, err)
	assert.Equal(t, domain.RunSourceFile, run.Source)
	assert.Equal(t, "example.txt", run.Label)
	assert.Equal(t, 1651, run.SingleScore)

	_, err = h.svc.SubmitRun(ctx, SubmitRunInput{Path: "../escape.txt"})
	assert.True(t, errors.Is(err, fs.ErrPathEscapesRoot))
}

func TestSubmitRunPathWithoutInputs(t *testing.T) {
	store, err := sqlitestore.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Migrate(context.Background()))

	svc := New(store, nil, nil, nil, Config{}, log.New(io.Discard, "", 0))
	_, err = svc.SubmitRun(context.Background(), SubmitRunInput{Path: "example.txt"})
	assert.True(t, errors.Is(err, ErrNoInputsRoot))
}

func TestChecksumIgnoresLayout(t *testing.T) {
	a := Checksum("Valve AA has flow rate=0; tunnel leads to valve AA\n")
	b := Checksum("\n   Valve AA has flow rate=0; tunnel leads to valve AA   \n\n")
	c := Checksum("Valve AA has flow rate=1; tunnel leads to valve AA\n")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSubmitRunShortIDGetsLabel(t *testing.T) {
	h := newHarness(t, false)

	run, err := h.svc.SubmitRun(context.Background(), SubmitRunInput{ID: "r1", Input: canonicalInput})
	require.NoError(t, err)
	assert.Equal(t, "r1", run.ID)
	assert.Equal(t, "run-r1", run.Label)
	assert.Equal(t, 1651, run.SingleScore)
}

func TestTrimTextKeepsRunes(t *testing.T) {
	assert.Equal(t, "short", trimText("short", 10))
	assert.Equal(t, "ab...", trimText("abcdef", 2))

	// "é" is two bytes; a cut inside it backs off to the rune start.
	got := trimText("aé", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))

	long := strings.Repeat("日本", 200)
	assert.True(t, utf8.ValidString(trimText(long, 500)))
}
