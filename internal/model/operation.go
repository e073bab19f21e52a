package model

// Operation is one line of a replay script.
type Operation struct {
	Op        string `json:"op"`
	Pool      string `json:"pool"`
	User      string `json:"user"`
	Side      string `json:"side,omitempty"`
	AmountIn  uint64 `json:"amount_in,omitempty"`
	MinOut    uint64 `json:"min_amount_out,omitempty"`
	Shares    uint64 `json:"shares,omitempty"`
	MinX      uint64 `json:"min_x,omitempty"`
	MinY      uint64 `json:"min_y,omitempty"`
	MaxX      uint64 `json:"max_x,omitempty"`
	MaxY      uint64 `json:"max_y,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}
