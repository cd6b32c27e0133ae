// Package audit records every state-changing operation as a structured
// event. Auditing is fire-and-forget: a sink failure never fails the
// business operation, but it is surfaced as a warning.
package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Severity of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is one row in the audit log.
type Event struct {
	Timestamp   time.Time
	Action      string
	UserID      string
	OperationID string
	Details     string
	Severity    Severity
}

// Sink persists audit events.
type Sink interface {
	Record(ctx context.Context, events []Event) error
}

// Header is the CSV header for audit-log.csv.
const Header = "timestamp,action,user_id,operation_id,details,severity"

const (
	numFields      = 6
	logDir         = "logs"
	logFile        = "logs/audit-log.csv"
	colTimestamp   = 0
	colAction      = 1
	colUserID      = 2
	colOperationID = 3
	colDetails     = 4
	colSeverity    = 5
)

// MarshalEvent converts an Event to a CSV row.
func MarshalEvent(e Event) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colAction] = e.Action
	row[colUserID] = e.UserID
	row[colOperationID] = e.OperationID
	row[colDetails] = e.Details
	row[colSeverity] = string(e.Severity)
	return row
}

// UnmarshalEvent converts a CSV row to an Event.
func UnmarshalEvent(record []string) (Event, error) {
	if len(record) != numFields {
		return Event{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Event{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	return Event{
		Timestamp:   ts,
		Action:      record[colAction],
		UserID:      record[colUserID],
		OperationID: record[colOperationID],
		Details:     record[colDetails],
		Severity:    Severity(record[colSeverity]),
	}, nil
}

// FileSink appends events to <root>/logs/audit-log.csv.
type FileSink struct {
	root string
}

// NewFileSink creates a FileSink rooted at a ledger repo directory.
func NewFileSink(root string) *FileSink {
	return &FileSink{root: root}
}

// Record writes events, creating the file and header if needed.
func (s *FileSink) Record(_ context.Context, events []Event) error {
	dir := filepath.Join(s.root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(s.root, logFile)
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	defer cw.Flush()

	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, e := range events {
		if err := cw.Write(MarshalEvent(e)); err != nil {
			return fmt.Errorf("writing event %d: %w", i, err)
		}
	}

	return cw.Error()
}

// Read returns all events from <root>/logs/audit-log.csv.
// Returns an empty slice if the file does not exist.
func Read(root string) ([]Event, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEvents(f)
}

func readEvents(r io.Reader) ([]Event, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading audit CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var events []Event
	for i, rec := range records[1:] {
		e, err := UnmarshalEvent(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		events = append(events, e)
	}
	return events, nil
}
