package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cpamm/internal/model"
)

// JsonlJournal appends journal records and operation errors to JSONL files.
// An empty errors path drops rejected operations.
type JsonlJournal struct {
	path       string
	errorsPath string
	mu         sync.Mutex
}

func NewJsonlJournal(path, errorsPath string) *JsonlJournal {
	return &JsonlJournal{path: path, errorsPath: errorsPath}
}

// PutRecords appends a batch of executed operations as JSON lines.
func (j *JsonlJournal) PutRecords(records []model.JournalRecord) error {
	if len(records) == 0 {
		return nil
	}
	lines := make([]interface{}, 0, len(records))
	for _, record := range records {
		lines = append(lines, record)
	}
	return j.appendLines(j.path, lines)
}

// PutErrors appends a batch of rejected operations as JSON lines.
func (j *JsonlJournal) PutErrors(failures []model.OperationError) error {
	if len(failures) == 0 || j.errorsPath == "" {
		return nil
	}
	lines := make([]interface{}, 0, len(failures))
	for _, failure := range failures {
		lines = append(lines, failure)
	}
	return j.appendLines(j.errorsPath, lines)
}

func (j *JsonlJournal) appendLines(path string, lines []interface{}) error {
	if path == "" {
		return fmt.Errorf("journal path is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, line := range lines {
		data, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("marshal journal line: %w", err)
		}
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("write journal line: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
