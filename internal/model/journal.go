package model

import (
	"encoding/json"
)

// JournalRecord is one executed pool operation as written to the journal.
type JournalRecord struct {
	Sequence   uint64      `json:"sequence"`
	Pool       string      `json:"pool"`
	Operation  string      `json:"operation"`
	Timestamp  uint64      `json:"timestamp"`
	Data       interface{} `json:"data"`
	RecordedAt string      `json:"recorded_at"`
}

// MarshalJSON ensures JournalRecord is encoded with stable field names.
func (jr JournalRecord) MarshalJSON() ([]byte, error) {
	type Alias JournalRecord
	return json.Marshal(Alias(jr))
}

// JournalEntry is the read-side form of JournalRecord used by aggregation.
type JournalEntry struct {
	Sequence   uint64          `json:"sequence"`
	Pool       string          `json:"pool"`
	Operation  string          `json:"operation"`
	Timestamp  uint64          `json:"timestamp"`
	Data       json.RawMessage `json:"data"`
	RecordedAt string          `json:"recorded_at"`
}

// OperationError records a rejected operation.
type OperationError struct {
	Sequence  uint64 `json:"sequence"`
	Pool      string `json:"pool"`
	Operation string `json:"operation"`
	User      string `json:"user"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}
