// Package auditlog persists one session's verdicts as JSON documents:
// separate pass and failure buckets plus a session summary, consumed by
// the downstream review dashboards.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chrscato/BillReview-system/internal/model"
)

// FailureRecord is the enhanced failure document written for each failed
// claim, carrying enough of the comparison inputs for manual review.
type FailureRecord struct {
	FileInfo struct {
		FileName  string    `json:"file_name"`
		OrderID   string    `json:"order_id"`
		Timestamp time.Time `json:"timestamp"`
		SessionID string    `json:"validation_session_id"`
	} `json:"file_info"`
	Summary struct {
		Status         model.Status         `json:"status"`
		ValidationType model.ValidationType `json:"validation_type"`
		Severity       string               `json:"severity_level"`
	} `json:"validation_summary"`
	Details struct {
		ValidationStep model.ValidationType `json:"validation_step"`
		ErrorCode      string               `json:"error_code"`
		ErrorMessage   string               `json:"error_message"`
		Description    string               `json:"error_description"`
		Suggestion     string               `json:"suggestion"`
	} `json:"failure_details"`
	Verdict *model.Verdict `json:"verdict"`
}

// Summary is the per-session rollup document.
type Summary struct {
	SessionID    string         `json:"session_id"`
	Timestamp    time.Time      `json:"timestamp"`
	TotalFiles   int            `json:"total_files"`
	PassedFiles  int            `json:"passed_files"`
	FailedFiles  int            `json:"failed_files"`
	FailureTypes map[string]int `json:"failure_types"`
}

// Logger collects verdicts for one validation session and writes them out
// on Save. Safe for concurrent Record calls from claim workers.
type Logger struct {
	dir       string
	sessionID uuid.UUID
	stamp     string

	mu       sync.Mutex
	verdicts []*model.Verdict
}

// New creates a session logger writing under dir.
func New(dir string) *Logger {
	return &Logger{
		dir:       dir,
		sessionID: uuid.New(),
		stamp:     time.Now().Format("20060102_150405"),
	}
}

// SessionID returns the session's unique id.
func (l *Logger) SessionID() string {
	return l.sessionID.String()
}

// Record appends one verdict to the session.
func (l *Logger) Record(v *model.Verdict) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verdicts = append(l.verdicts, v)
}

// Save writes the pass, failure, and summary documents and returns the
// summary file path.
func (l *Logger) Save() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	var passes []*model.Verdict
	var failures []FailureRecord
	failureTypes := make(map[string]int)

	for _, v := range l.verdicts {
		if v.Status == model.StatusPass {
			passes = append(passes, v)
			continue
		}
		failures = append(failures, l.failureRecord(v))
		failureTypes[string(v.ValidationType)]++
	}

	if err := l.writeJSON(fmt.Sprintf("validation_passes_%s.json", l.stamp), passes); err != nil {
		return "", err
	}
	if err := l.writeJSON(fmt.Sprintf("validation_failures_%s.json", l.stamp), failures); err != nil {
		return "", err
	}

	summary := Summary{
		SessionID:    l.sessionID.String(),
		Timestamp:    time.Now(),
		TotalFiles:   len(l.verdicts),
		PassedFiles:  len(passes),
		FailedFiles:  len(failures),
		FailureTypes: failureTypes,
	}
	summaryPath := filepath.Join(l.dir, fmt.Sprintf("validation_summary_%s.json", l.stamp))
	if err := l.writeJSON(filepath.Base(summaryPath), summary); err != nil {
		return "", err
	}
	return summaryPath, nil
}

func (l *Logger) failureRecord(v *model.Verdict) FailureRecord {
	code := codeFor(v.ValidationType)

	var rec FailureRecord
	rec.FileInfo.FileName = v.FileName
	rec.FileInfo.OrderID = v.OrderID
	rec.FileInfo.Timestamp = v.Timestamp
	rec.FileInfo.SessionID = l.sessionID.String()
	rec.Summary.Status = v.Status
	rec.Summary.ValidationType = v.ValidationType
	rec.Summary.Severity = severityFor(v.ValidationType)
	rec.Details.ValidationStep = v.ValidationType
	rec.Details.ErrorCode = code
	rec.Details.Description = Describe(code)
	rec.Details.Suggestion = suggestionFor(v.ValidationType)
	if len(v.Messages) > 0 {
		rec.Details.ErrorMessage = v.Messages[0]
	} else {
		rec.Details.ErrorMessage = "Validation failed"
	}
	rec.Verdict = v
	return rec
}

func (l *Logger) writeJSON(name string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
