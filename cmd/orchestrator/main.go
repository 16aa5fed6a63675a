package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"valvenet/internal/cache"
	"valvenet/internal/config"
	"valvenet/internal/domain"
	"valvenet/internal/fs"
	"valvenet/internal/messaging/inproc"
	"valvenet/internal/orchestrator"
	sqlitestore "valvenet/internal/store/sqlite"
)

type runService interface {
	SubmitRun(ctx context.Context, in orchestrator.SubmitRunInput) (domain.Run, error)
	GetRun(ctx context.Context, runID string) (domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	ListRunEvents(ctx context.Context, runID string, limit int) ([]domain.RunEvent, error)
}

type inputLister interface {
	ListInputs(ctx context.Context) ([]string, error)
}

type app struct {
	cfg    config.Config
	runs   runService
	inputs inputLister
}

func main() {
	configPath := flag.String("config", "", "path to config.toml (default: ~/.valvenet/config.toml)")
	addrFlag := flag.String("addr", "", "http listen address override")
	dbPathFlag := flag.String("db", "", "sqlite database path override")
	inputsFlag := flag.String("inputs", "", "inputs root directory override")
	redisFlag := flag.String("redis", "", "redis url for the result cache (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	addr := firstNonEmpty(*addrFlag, cfg.Orchestrator.Addr, ":8091")
	dbPath := firstNonEmpty(*dbPathFlag, cfg.Orchestrator.DBPath, "data/valvenet.db")
	inputsRoot := firstNonEmpty(*inputsFlag, cfg.Orchestrator.InputsRoot, "inputs")
	redisURL := firstNonEmpty(*redisFlag, cfg.Orchestrator.RedisURL)
	dbPath = filepath.Clean(dbPath)
	inputsRoot = filepath.Clean(inputsRoot)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("create db directory: %v", err)
	}

	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		log.Fatalf("open sqlite store: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("migrate sqlite: %v", err)
	}

	var resultCache orchestrator.Cache
	if redisURL != "" {
		rc, err := cache.Open(ctx, redisURL, time.Duration(cfg.Orchestrator.CacheTTLSeconds)*time.Second)
		if err != nil {
			log.Fatalf("open result cache: %v", err)
		}
		defer func() {
			_ = rc.Close()
		}()
		resultCache = rc
	}

	inputs, err := fs.NewGateway(inputsRoot, cfg.Orchestrator.MaxInputBytes)
	if err != nil {
		log.Fatalf("create inputs gateway: %v", err)
	}

	bus := inproc.New(intOrDefault(cfg.Orchestrator.EventBuffer, 256))
	go logEvents(ctx, bus.Register("log"))

	svc := orchestrator.New(store, resultCache, bus, inputs, orchestrator.Config{
		SolveTimeout: durationMS(cfg.Orchestrator.SolveTimeoutMS, 60*time.Second),
		DisableMemo:  !cfg.Solver.MemoizeEnabled(),
	}, log.Default())

	a := &app{
		cfg:    cfg,
		runs:   svc,
		inputs: inputs,
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(a.routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Printf(
		"valvenet started addr=%s db=%s inputs=%s cache=%t memoize=%t",
		addr,
		dbPath,
		inputsRoot,
		resultCache != nil,
		cfg.Solver.MemoizeEnabled(),
	)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server failed: %v", err)
	}
}

func (a *app) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/config", a.handleConfig)
	mux.HandleFunc("/inputs", a.handleInputs)
	mux.HandleFunc("/runs", a.handleRuns)
	mux.HandleFunc("/runs/", a.handleRunByID)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func logEvents(ctx context.Context, events <-chan domain.RunEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			log.Printf("run event run=%s action=%s reason=%s", evt.RunID, evt.Action, evt.Reason)
		}
	}
}

func (a *app) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *app) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"path": a.cfg.Path,
		"raw":  a.cfg.Raw,
	})
}

func (a *app) handleInputs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	items, err := a.inputs.ListInputs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *app) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		runs, err := a.runs.ListRuns(r.Context(), queryInt(r, "limit", 200))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	case http.MethodPost:
		var req domain.SubmitRunPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid json body: %w", err))
			return
		}
		if strings.TrimSpace(req.Input) == "" && strings.TrimSpace(req.Path) == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("input or path is required"))
			return
		}
		run, err := a.runs.SubmitRun(r.Context(), orchestrator.SubmitRunInput{
			Label: req.Label,
			Input: req.Input,
			Path:  req.Path,
		})
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, run)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (a *app) handleRunByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/runs/")
	parts := strings.Split(trimmed, "/")
	runID := parts[0]
	if runID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("run id is required"))
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if len(parts) == 1 {
		run, err := a.runs.GetRun(r.Context(), runID)
		if err != nil {
			writeError(w, statusForError(err), err)
			return
		}
		writeJSON(w, http.StatusOK, run)
		return
	}

	switch parts[1] {
	case "events":
		items, err := a.runs.ListRunEvents(r.Context(), runID, queryInt(r, "limit", 300))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	default:
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown action: %s", parts[1]))
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidInput),
		errors.Is(err, fs.ErrPathEscapesRoot),
		errors.Is(err, fs.ErrInputTooLarge),
		errors.Is(err, orchestrator.ErrNoInputsRoot):
		return http.StatusBadRequest
	case errors.Is(err, sqlitestore.ErrRunNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func durationMS(v int, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v) * time.Millisecond
}

func intOrDefault(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func queryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
