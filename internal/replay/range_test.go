package replay

import (
	"math"
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	got, err := SplitRange(100, 105, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []LineRange{
		{From: 100, To: 101},
		{From: 102, To: 103},
		{From: 104, To: 105},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeUneven(t *testing.T) {
	got, err := SplitRange(1, 5, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []LineRange{{From: 1, To: 3}, {From: 4, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeSingle(t *testing.T) {
	got, err := SplitRange(5, 5, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []LineRange{{From: 5, To: 5}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeNearMax(t *testing.T) {
	got, err := SplitRange(math.MaxUint64-2, math.MaxUint64, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []LineRange{{From: math.MaxUint64 - 2, To: math.MaxUint64 - 1}, {From: math.MaxUint64, To: math.MaxUint64}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ranges mismatch: %+v != %+v", got, want)
	}
}

func TestSplitRangeInvalid(t *testing.T) {
	if _, err := SplitRange(10, 9, 1); err == nil {
		t.Fatalf("expected error for invalid range")
	}
	if _, err := SplitRange(1, 10, 0); err == nil {
		t.Fatalf("expected error for zero batch size")
	}
}

func TestLineRangeBounds(t *testing.T) {
	r := LineRange{From: 4, To: 9}
	if r.Len() != 6 {
		t.Fatalf("len = %d, want 6", r.Len())
	}
	for _, tc := range []struct {
		line uint64
		want bool
	}{{3, false}, {4, true}, {9, true}, {10, false}} {
		if got := r.Contains(tc.line); got != tc.want {
			t.Fatalf("Contains(%d) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
