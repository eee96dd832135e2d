package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"gadgetsync/internal/pipeline/business/models"
)

// AuditLog is the line-delimited JSON file recording every sync attempt.
// Entries are appended once and never touched again; the log survives job
// status TTL expiry and is the durable record of what each run did.
type AuditLog struct {
	path string
}

func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Append writes one entry as a single JSON line.
func (a *AuditLog) Append(entry models.AuditLogEntry) error {
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open audit log %s: %w", a.path, err)
	}
	defer f.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Entries reads the whole log back, oldest first. Unparseable lines are
// skipped; a torn final line from a crash must not make history unreadable.
func (a *AuditLog) Entries() ([]models.AuditLogEntry, error) {
	f, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log %s: %w", a.path, err)
	}
	defer f.Close()

	var entries []models.AuditLogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry models.AuditLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("scan audit log %s: %w", a.path, err)
	}
	return entries, nil
}
