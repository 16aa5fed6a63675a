package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"valvenet/internal/domain"
)

type client struct {
	baseURL string
	http    *http.Client
}

type embeddedOrchestrator struct {
	cmd *exec.Cmd
}

func main() {
	addr := flag.String("addr", "http://localhost:8091", "orchestrator base URL")
	interval := flag.Duration("interval", 2*time.Second, "refresh interval")
	embedded := flag.Bool("embedded", true, "start orchestrator in the same monitor process lifecycle")
	orchestratorBinary := flag.String("orchestrator-bin", "", "path to orchestrator binary (optional in embedded mode)")
	dbPath := flag.String("db", "data/embedded.db", "sqlite db path for embedded orchestrator")
	inputsRoot := flag.String("inputs", "inputs", "inputs root for embedded orchestrator")
	flag.Parse()

	c := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http: &http.Client{
			// Dual-mode searches on large inputs can take a while.
			Timeout: 2 * time.Minute,
		},
	}

	var embeddedProc *embeddedOrchestrator
	var err error
	if *embedded {
		embeddedProc, err = startEmbeddedOrchestrator(*addr, *orchestratorBinary, *dbPath, *inputsRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start embedded orchestrator: %v\n", err)
			os.Exit(1)
		}
		defer embeddedProc.Stop()
	}

	if err := waitHealth(c, 30*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator health check failed: %v\n", err)
		os.Exit(1)
	}

	app := tview.NewApplication()
	runsTable := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false)
	runsTable.SetTitle("Runs (Enter inspect, F5 refresh, F10 quit)").SetBorder(true)

	detailView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	detailView.SetTitle("Run").SetBorder(true)

	eventsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	eventsView.SetTitle("Events").SetBorder(true)

	inputsView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	inputsView.SetTitle("Inputs").SetBorder(true)

	pathInput := tview.NewInputField().
		SetLabel("Input path -> Orchestrator: ")
	pathInput.SetBorder(true).SetTitle("Enter = submit run")

	statusView := tview.NewTextView().
		SetDynamicColors(true).
		SetWrap(false)
	statusView.SetBorder(true).SetTitle("Status")
	statusView.SetText(fmt.Sprintf(
		"Connected to %s | embedded=%t | shortcuts: F10 quit, F5 refresh, Ctrl+L focus input, Ctrl+T focus runs",
		c.baseURL,
		*embedded,
	))

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(detailView, 12, 0, false).
		AddItem(eventsView, 0, 2, false).
		AddItem(inputsView, 0, 1, false)

	mainLayout := tview.NewFlex().
		AddItem(runsTable, 0, 1, false).
		AddItem(right, 0, 1, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(mainLayout, 0, 12, false).
		AddItem(pathInput, 3, 0, true).
		AddItem(statusView, 3, 0, false)

	var selectedRunID string
	var lastRuns []domain.Run
	var detailsVersion uint64

	setStatusUI := func(msg string) {
		statusView.SetText(msg)
	}
	setStatusAsync := func(msg string) {
		app.QueueUpdateDraw(func() {
			statusView.SetText(msg)
		})
	}

	refreshRuns := func() {
		runs, err := c.listRuns()
		if err != nil {
			app.QueueUpdateDraw(func() {
				runsTable.Clear()
				runsTable.SetCell(0, 0, tview.NewTableCell(fmt.Sprintf("load error: %v", err)).SetTextColor(tview.Styles.ContrastSecondaryTextColor))
			})
			return
		}
		lastRuns = runs
		app.QueueUpdateDraw(func() {
			renderRunsTable(runsTable, runs, selectedRunID)
		})
	}

	refreshInputs := func() {
		items, err := c.listInputs()
		app.QueueUpdateDraw(func() {
			if err != nil {
				inputsView.SetText(fmt.Sprintf("error: %v", err))
				return
			}
			inputsView.SetText(renderInputs(items))
		})
	}

	refreshDetailsAsync := func(runID string) {
		if strings.TrimSpace(runID) == "" {
			return
		}
		version := atomic.AddUint64(&detailsVersion, 1)

		go func(selected string, v uint64) {
			run, runErr := c.getRun(selected)
			events, eventsErr := c.listRunEvents(selected, 200)

			if atomic.LoadUint64(&detailsVersion) != v {
				return
			}
			app.QueueUpdateDraw(func() {
				if selected != selectedRunID {
					return
				}
				if runErr != nil {
					detailView.SetText(fmt.Sprintf("error: %v", runErr))
				} else {
					detailView.SetText(renderRunDetail(run))
				}
				if eventsErr != nil {
					eventsView.SetText(fmt.Sprintf("error: %v", eventsErr))
				} else {
					eventsView.SetText(renderEvents(events))
				}
			})
		}(runID, version)
	}

	submitPath := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		setStatusUI("Solving " + path + "...")
		pathInput.SetText("")
		go func(p string) {
			run, err := c.submitRun(domain.SubmitRunPayload{Path: p})
			if err != nil {
				setStatusAsync("Failed to submit run: " + err.Error())
				refreshRuns()
				return
			}
			selectedRunID = run.ID
			refreshRuns()
			refreshDetailsAsync(selectedRunID)
			setStatusAsync(fmt.Sprintf("Run %s %s: single=%d dual=%d", shortID(run.ID), run.Status, run.SingleScore, run.DualScore))
		}(path)
	}

	pathInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		submitPath(pathInput.GetText())
	})

	runsTable.SetSelectedFunc(func(row, _ int) {
		if row <= 0 || row > len(lastRuns) {
			return
		}
		selectedRunID = lastRuns[row-1].ID
		refreshDetailsAsync(selectedRunID)
	})

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if app.GetFocus() == pathInput {
			if event.Key() == tcell.KeyEscape || event.Key() == tcell.KeyTAB {
				app.SetFocus(runsTable)
				setStatusUI("Focus -> runs")
				return nil
			}
			return event
		}

		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlT:
			app.SetFocus(runsTable)
			setStatusUI("Focus -> runs")
			return nil
		case tcell.KeyF10:
			app.Stop()
			return nil
		case tcell.KeyF5:
			go func() {
				refreshRuns()
				refreshInputs()
				refreshDetailsAsync(selectedRunID)
			}()
			setStatusUI("Manual refresh requested")
			return nil
		case tcell.KeyCtrlL, tcell.KeyTAB:
			app.SetFocus(pathInput)
			setStatusUI("Focus -> input")
			return nil
		}
		return event
	})

	go func() {
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()

		refreshRuns()
		refreshInputs()
		if len(lastRuns) > 0 {
			selectedRunID = lastRuns[0].ID
			refreshDetailsAsync(selectedRunID)
		}

		for range ticker.C {
			refreshRuns()
			if selectedRunID == "" && len(lastRuns) > 0 {
				selectedRunID = lastRuns[0].ID
			}
			refreshDetailsAsync(selectedRunID)
		}
	}()

	if err := app.SetRoot(root, true).EnableMouse(true).SetFocus(pathInput).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor failed: %v\n", err)
		os.Exit(1)
	}
}

func waitHealth(c *client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, c.baseURL+"/healthz", nil)
		if err == nil {
			resp, err := c.http.Do(req)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode < 300 {
					return nil
				}
			}
		}
		time.Sleep(400 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for /healthz")
}

func startEmbeddedOrchestrator(addr string, orchestratorBinary string, dbPath string, inputsRoot string) (*embeddedOrchestrator, error) {
	args, err := embeddedArgs(addr, dbPath, inputsRoot)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	if err := os.MkdirAll(inputsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create inputs root: %w", err)
	}

	var cmd *exec.Cmd
	if strings.TrimSpace(orchestratorBinary) != "" {
		cmd = exec.Command(orchestratorBinary, args...)
	} else {
		self, err := os.Executable()
		if err == nil {
			for _, name := range []string{"orchestrator", "orchestrator.exe"} {
				sibling := filepath.Join(filepath.Dir(self), name)
				if fileExists(sibling) {
					cmd = exec.Command(sibling, args...)
					break
				}
			}
		}
		if cmd == nil {
			cmd = exec.Command("go", append([]string{"run", "./cmd/orchestrator"}, args...)...)
			cwd, _ := os.Getwd()
			cmd.Dir = cwd
		}
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start orchestrator process: %w", err)
	}
	return &embeddedOrchestrator{cmd: cmd}, nil
}

func embeddedArgs(addr string, dbPath string, inputsRoot string) ([]string, error) {
	parsed, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse addr: %w", err)
	}
	port := parsed.Port()
	if port == "" {
		return nil, fmt.Errorf("addr must include explicit port, got %q", addr)
	}
	return []string{"--addr", ":" + port, "--db", dbPath, "--inputs", inputsRoot}, nil
}

func (e *embeddedOrchestrator) Stop() {
	if e == nil || e.cmd == nil || e.cmd.Process == nil {
		return
	}
	_ = e.cmd.Process.Kill()
	_, _ = e.cmd.Process.Wait()
}

func (c *client) submitRun(payload domain.SubmitRunPayload) (domain.Run, error) {
	var run domain.Run
	if err := c.postJSON("/runs", payload, &run); err != nil {
		return domain.Run{}, err
	}
	return run, nil
}

func (c *client) listRuns() ([]domain.Run, error) {
	var out []domain.Run
	if err := c.getJSON("/runs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) getRun(runID string) (domain.Run, error) {
	var out domain.Run
	if err := c.getJSON("/runs/"+url.PathEscape(runID), &out); err != nil {
		return domain.Run{}, err
	}
	return out, nil
}

func (c *client) listRunEvents(runID string, limit int) ([]domain.RunEvent, error) {
	var out []domain.RunEvent
	if err := c.getJSON(fmt.Sprintf("/runs/%s/events?limit=%d", url.PathEscape(runID), limit), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) listInputs() ([]string, error) {
	var out []string
	if err := c.getJSON("/inputs", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

func (c *client) postJSON(path string, in any, out any) error {
	var payload io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("http %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
