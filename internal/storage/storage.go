// Package storage holds the sinks executed pool operations are journaled to.
package storage

import "cpamm/internal/model"

// Journal is a sink for executed and rejected operations.
type Journal interface {
	PutRecords(records []model.JournalRecord) error
	PutErrors(failures []model.OperationError) error
}
