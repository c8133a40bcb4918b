package models

import "time"

// AuditEntry is one audited generation call, retries included.
type AuditEntry struct {
	RequestID  string    `json:"request_id"`
	RunID      string    `json:"run_id,omitempty"`
	Identifier string    `json:"identifier,omitempty"`
	Model      string    `json:"model"`
	Backend    string    `json:"backend"`
	Prompt     string    `json:"prompt,omitempty"`
	Response   string    `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
	StatusCode int       `json:"status_code"`
	Attempts   int       `json:"attempts"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuditQueryOpts specifies filters for querying audit entries.
type AuditQueryOpts struct {
	Model      string
	Since      time.Time
	Identifier string
	RunID      string
	RequestID  string
	FailedOnly bool
	Limit      int
}

// AuditStat holds aggregate audit counts for a model/day combination.
type AuditStat struct {
	Model    string
	Day      string
	Count    int
	Failures int
}
