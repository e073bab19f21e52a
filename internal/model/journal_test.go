package model

import (
	"encoding/json"
	"testing"
)

func TestJournalRecordDecodesAsEntry(t *testing.T) {
	record := JournalRecord{
		Sequence:  3,
		Pool:      "0x1111111111111111111111111111111111111111",
		Operation: OpSwap,
		Timestamp: 1700000000,
		Data: SwapEventData{
			User:      "0x2222222222222222222222222222222222222222",
			Side:      "x",
			AmountIn:  "18446744073709551615",
			AmountOut: "90",
			Fee:       "1",
		},
		RecordedAt: "2024-01-01T00:00:00Z",
	}

	b, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var entry JournalEntry
	if err := json.Unmarshal(b, &entry); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if entry.Sequence != 3 || entry.Operation != OpSwap || entry.Timestamp != 1700000000 {
		t.Fatalf("entry mismatch: %+v", entry)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(entry.Data, &fields); err != nil {
		t.Fatalf("unmarshal data failed: %v", err)
	}
	for _, key := range []string{"amount_in", "amount_out", "fee"} {
		if _, ok := fields[key].(string); !ok {
			t.Fatalf("%s should be string", key)
		}
	}

	var swap SwapEventData
	if err := json.Unmarshal(entry.Data, &swap); err != nil {
		t.Fatalf("unmarshal swap failed: %v", err)
	}
	if swap.AmountIn != "18446744073709551615" {
		t.Fatalf("amount_in lost precision: %s", swap.AmountIn)
	}
}
