package domain

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusPending RunStatus = "pending"
	RunStatusSolving RunStatus = "solving"
	RunStatusSolved  RunStatus = "solved"
	RunStatusFailed  RunStatus = "failed"
)

type RunSource string

const (
	RunSourceInline RunSource = "inline"
	RunSourceFile   RunSource = "file"
)

type Mode string

const (
	ModeSingle Mode = "single"
	ModeDual   Mode = "dual"
)

type Run struct {
	ID             string    `json:"id"`
	Label          string    `json:"label"`
	Source         RunSource `json:"source"`
	Checksum       string    `json:"checksum"`
	Status         RunStatus `json:"status"`
	SingleScore    int       `json:"single_score"`
	DualScore      int       `json:"dual_score"`
	FlowValves     int       `json:"flow_valves"`
	StatesExpanded int64     `json:"states_expanded"`
	DurationMS     int64     `json:"duration_ms"`
	CacheHit       bool      `json:"cache_hit"`
	LastError      string    `json:"last_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type RunEvent struct {
	ID        int64           `json:"id"`
	RunID     string          `json:"run_id"`
	Actor     string          `json:"actor"`
	Action    string          `json:"action"`
	Reason    string          `json:"reason"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Scores is what the cache keeps per input checksum.
type Scores struct {
	Single     int `json:"single"`
	Dual       int `json:"dual"`
	FlowValves int `json:"flow_valves"`
}

type SubmitRunPayload struct {
	Label string `json:"label"`
	Input string `json:"input,omitempty"`
	Path  string `json:"path,omitempty"`
}
