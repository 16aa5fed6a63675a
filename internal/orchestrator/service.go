package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"valvenet/internal/domain"
	"valvenet/internal/valve"
)

const orchestratorActor = "orchestrator"

var (
	ErrInvalidInput = errors.New("invalid valve input")
	ErrNoInputsRoot = errors.New("file inputs are not configured")
)

type Store interface {
	CreateRun(ctx context.Context, run domain.Run) error
	GetRun(ctx context.Context, runID string) (domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	LatestSolvedByChecksum(ctx context.Context, checksum string) (domain.Run, bool, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus, lastError string) error
	CompleteRun(ctx context.Context, run domain.Run) error

	LogRunEvent(ctx context.Context, entry domain.RunEvent) error
	ListRunEvents(ctx context.Context, runID string, limit int) ([]domain.RunEvent, error)
}

type Cache interface {
	Get(ctx context.Context, checksum string) (domain.Scores, bool, error)
	Put(ctx context.Context, checksum string, scores domain.Scores) error
}

type Bus interface {
	Publish(evt domain.RunEvent) error
}

type Inputs interface {
	ReadInput(ctx context.Context, relPath string) ([]byte, error)
}

type Config struct {
	SolveTimeout time.Duration
	DisableMemo  bool
}

func (c Config) withDefaults() Config {
	if c.SolveTimeout <= 0 {
		c.SolveTimeout = 60 * time.Second
	}
	return c
}

type Service struct {
	store  Store
	cache  Cache
	bus    Bus
	inputs Inputs
	parser *valve.Parser
	cfg    Config
	logger *log.Logger
}

// New wires a run service. cache, bus and inputs are optional.
func New(store Store, cache Cache, bus Bus, inputs Inputs, cfg Config, logger *log.Logger) *Service {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		store:  store,
		cache:  cache,
		bus:    bus,
		inputs: inputs,
		parser: valve.NewParser(),
		cfg:    cfg,
		logger: logger,
	}
}

type SubmitRunInput struct {
	ID    string
	Label string
	Input string
	Path  string
}

// SubmitRun records a run for the given input, solves it in both modes (or
// reuses an earlier result for identical input) and returns the stored run.
// A parse failure still leaves a failed run behind.
func (s *Service) SubmitRun(ctx context.Context, in SubmitRunInput) (domain.Run, error) {
	source := domain.RunSourceInline
	input := in.Input
	if strings.TrimSpace(in.Path) != "" {
		if s.inputs == nil {
			return domain.Run{}, ErrNoInputsRoot
		}
		content, err := s.inputs.ReadInput(ctx, in.Path)
		if err != nil {
			return domain.Run{}, fmt.Errorf("read input %s: %w", in.Path, err)
		}
		input = string(content)
		source = domain.RunSourceFile
		if in.Label == "" {
			in.Label = in.Path
		}
	}
	if strings.TrimSpace(input) == "" {
		return domain.Run{}, fmt.Errorf("%w: input is empty", ErrInvalidInput)
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.Label == "" {
		in.Label = "run-" + in.ID[:min(8, len(in.ID))]
	}

	run := domain.Run{
		ID:        in.ID,
		Label:     in.Label,
		Source:    source,
		Checksum:  Checksum(input),
		Status:    domain.RunStatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return domain.Run{}, err
	}
	s.record(ctx, run.ID, "run_created", "run submitted", map[string]any{
		"label":    run.Label,
		"source":   run.Source,
		"checksum": run.Checksum,
	})

	network, err := s.parser.Parse(input)
	if err != nil {
		runsTotal.WithLabelValues("invalid").Inc()
		s.failRun(ctx, run.ID, err)
		return s.reload(ctx, run), fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if scores, ok := s.lookupScores(ctx, run.Checksum); ok {
		runsTotal.WithLabelValues("cached").Inc()
		run.SingleScore = scores.Single
		run.DualScore = scores.Dual
		run.FlowValves = scores.FlowValves
		run.CacheHit = true
		if err := s.store.CompleteRun(ctx, run); err != nil {
			return domain.Run{}, err
		}
		s.record(ctx, run.ID, "run_solved", "reused earlier result", scores)
		return s.reload(ctx, run), nil
	}

	if err := s.store.UpdateRunStatus(ctx, run.ID, domain.RunStatusSolving, ""); err != nil {
		return domain.Run{}, err
	}
	s.record(ctx, run.ID, "run_solving", "search started", map[string]any{
		"valves":      network.Len(),
		"flow_valves": len(network.FlowValves()),
	})

	solveCtx, cancel := context.WithTimeout(ctx, s.cfg.SolveTimeout)
	result, err := Solve(solveCtx, network, SolveOptions{Memoize: !s.cfg.DisableMemo})
	cancel()
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		s.failRun(ctx, run.ID, err)
		return s.reload(ctx, run), err
	}

	run.SingleScore = result.Single
	run.DualScore = result.Dual
	run.FlowValves = result.FlowValves
	run.StatesExpanded = result.Stats.States
	run.DurationMS = result.Elapsed.Milliseconds()
	if err := s.store.CompleteRun(ctx, run); err != nil {
		return domain.Run{}, err
	}
	scores := domain.Scores{Single: result.Single, Dual: result.Dual, FlowValves: result.FlowValves}
	if s.cache != nil {
		if err := s.cache.Put(ctx, run.Checksum, scores); err != nil {
			s.logger.Printf("cache put failed run=%s err=%v", run.ID, err)
		}
	}
	runsTotal.WithLabelValues("solved").Inc()
	s.record(ctx, run.ID, "run_solved", "search finished", map[string]any{
		"single":      result.Single,
		"dual":        result.Dual,
		"states":      result.Stats.States,
		"memo_hits":   result.Stats.MemoHits,
		"duration_ms": run.DurationMS,
	})
	s.logger.Printf(
		"run solved id=%s label=%s single=%d dual=%d states=%d elapsed=%s",
		run.ID, run.Label, result.Single, result.Dual, result.Stats.States, result.Elapsed,
	)
	return s.reload(ctx, run), nil
}

func (s *Service) GetRun(ctx context.Context, runID string) (domain.Run, error) {
	return s.store.GetRun(ctx, runID)
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	return s.store.ListRuns(ctx, limit)
}

func (s *Service) ListRunEvents(ctx context.Context, runID string, limit int) ([]domain.RunEvent, error) {
	return s.store.ListRunEvents(ctx, runID, limit)
}

func (s *Service) lookupScores(ctx context.Context, checksum string) (domain.Scores, bool) {
	if s.cache != nil {
		scores, ok, err := s.cache.Get(ctx, checksum)
		if err != nil {
			s.logger.Printf("cache get failed checksum=%s err=%v", checksum, err)
		} else if ok {
			return scores, true
		}
	}
	prior, ok, err := s.store.LatestSolvedByChecksum(ctx, checksum)
	if err != nil {
		s.logger.Printf("checksum lookup failed checksum=%s err=%v", checksum, err)
		return domain.Scores{}, false
	}
	if !ok {
		return domain.Scores{}, false
	}
	return domain.Scores{Single: prior.SingleScore, Dual: prior.DualScore, FlowValves: prior.FlowValves}, true
}

func (s *Service) failRun(ctx context.Context, runID string, cause error) {
	if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusFailed, trimText(cause.Error(), 500)); err != nil {
		s.logger.Printf("mark run failed id=%s err=%v", runID, err)
	}
	s.record(ctx, runID, "run_failed", trimText(cause.Error(), 200), nil)
	s.logger.Printf("run failed id=%s err=%v", runID, cause)
}

// reload returns the stored run, falling back to the in-memory copy.
func (s *Service) reload(ctx context.Context, run domain.Run) domain.Run {
	stored, err := s.store.GetRun(ctx, run.ID)
	if err != nil {
		return run
	}
	return stored
}

func (s *Service) record(ctx context.Context, runID, action, reason string, payload any) {
	evt := domain.RunEvent{
		RunID:     runID,
		Actor:     orchestratorActor,
		Action:    action,
		Reason:    reason,
		Payload:   mustJSON(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.LogRunEvent(ctx, evt); err != nil {
		s.logger.Printf("log run event failed run=%s action=%s err=%v", runID, action, err)
	}
	if s.bus != nil {
		if err := s.bus.Publish(evt); err != nil {
			s.logger.Printf("publish run event failed run=%s action=%s err=%v", runID, action, err)
		}
	}
}

// Checksum identifies an input independent of blank lines and per-line
// surrounding whitespace.
func Checksum(input string) string {
	lines := strings.Split(input, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	sum := sha256.Sum256([]byte(strings.Join(kept, "\n")))
	return hex.EncodeToString(sum[:])
}

func mustJSON(v any) []byte {
	if v == nil {
		return []byte("{}")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}

// trimText cuts s to at most n bytes on a rune boundary.
func trimText(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
