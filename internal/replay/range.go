package replay

import "fmt"

// LineRange is an inclusive range of 1-based script line numbers.
type LineRange struct {
	From uint64
	To   uint64
}

// Len is the number of lines in the range.
func (r LineRange) Len() uint64 { return r.To - r.From + 1 }

// Contains reports whether line falls inside the range.
func (r LineRange) Contains(line uint64) bool { return line >= r.From && line <= r.To }

// SplitRange cuts [from, to] into consecutive batches of at most batchSize
// lines. The last batch carries the remainder.
func SplitRange(from, to, batchSize uint64) ([]LineRange, error) {
	switch {
	case batchSize == 0:
		return nil, fmt.Errorf("split lines %d-%d: batch size must be greater than zero", from, to)
	case to < from:
		return nil, fmt.Errorf("split lines %d-%d: range is inverted", from, to)
	}

	var ranges []LineRange
	start := from
	for to-start >= batchSize {
		ranges = append(ranges, LineRange{From: start, To: start + batchSize - 1})
		start += batchSize
	}
	return append(ranges, LineRange{From: start, To: to}), nil
}
