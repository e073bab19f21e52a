package storage

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"cpamm/internal/model"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

func TestJsonlJournalAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "journal.jsonl")
	errorsPath := filepath.Join(dir, "out", "errors.jsonl")
	journal := NewJsonlJournal(path, errorsPath)

	first := model.JournalRecord{
		Sequence:  1,
		Pool:      "0xpool",
		Operation: model.OpSwap,
		Timestamp: 100,
		Data:      model.SwapEventData{AmountIn: "100", AmountOut: "90", Fee: "1"},
	}
	if err := journal.PutRecords([]model.JournalRecord{first}); err != nil {
		t.Fatalf("put records: %v", err)
	}
	second := first
	second.Sequence = 2
	if err := journal.PutRecords([]model.JournalRecord{second}); err != nil {
		t.Fatalf("put records: %v", err)
	}
	if err := journal.PutErrors([]model.OperationError{{Sequence: 3, Operation: model.OpSwap, Code: "SLIPPAGE_EXCEEDED"}}); err != nil {
		t.Fatalf("put errors: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("expected 2 journal lines, got %d", len(lines))
	}
	var entry model.JournalEntry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry.Sequence != 2 || entry.Operation != model.OpSwap {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	var swap model.SwapEventData
	if err := json.Unmarshal(entry.Data, &swap); err != nil {
		t.Fatalf("decode swap data: %v", err)
	}
	if swap.AmountOut != "90" {
		t.Fatalf("amount_out = %q", swap.AmountOut)
	}

	if got := readLines(t, errorsPath); len(got) != 1 {
		t.Fatalf("expected 1 error line, got %d", len(got))
	}
}

func TestJsonlJournalWithoutErrorsPath(t *testing.T) {
	journal := NewJsonlJournal(filepath.Join(t.TempDir(), "journal.jsonl"), "")
	if err := journal.PutErrors([]model.OperationError{{Sequence: 1}}); err != nil {
		t.Fatalf("put errors: %v", err)
	}
	if err := journal.PutRecords(nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
}
