package model

// Operation names used in journals and replay scripts.
const (
	OpInitialize = "initialize"
	OpDeposit    = "deposit"
	OpSwap       = "swap"
	OpWithdraw   = "withdraw"
	OpLock       = "lock"
	OpUnlock     = "unlock"
)

// SwapEventData is the payload of an executed swap.
type SwapEventData struct {
	User      string `json:"user"`
	Side      string `json:"side"`
	AssetIn   string `json:"asset_in"`
	AssetOut  string `json:"asset_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
	Fee       string `json:"fee"`
	MinOut    string `json:"min_amount_out"`
	ReserveX  string `json:"reserve_x"`
	ReserveY  string `json:"reserve_y"`
}

// WithdrawEventData is the payload of an executed withdrawal.
type WithdrawEventData struct {
	User         string `json:"user"`
	SharesBurned string `json:"shares_burned"`
	AmountX      string `json:"amount_x"`
	AmountY      string `json:"amount_y"`
	MinX         string `json:"min_x"`
	MinY         string `json:"min_y"`
	ShareSupply  string `json:"share_supply"`
}

// DepositEventData is the payload of an executed deposit.
type DepositEventData struct {
	User         string `json:"user"`
	SharesMinted string `json:"shares_minted"`
	AmountX      string `json:"amount_x"`
	AmountY      string `json:"amount_y"`
	ShareSupply  string `json:"share_supply"`
}

// LockEventData is the payload of a lock toggle.
type LockEventData struct {
	Admin  string `json:"admin"`
	Locked bool   `json:"locked"`
}

// InitializeEventData is the payload of a pool creation.
type InitializeEventData struct {
	Seed       uint64 `json:"seed"`
	AssetX     string `json:"asset_x"`
	AssetY     string `json:"asset_y"`
	ShareAsset string `json:"share_asset"`
	FeeBps     uint16 `json:"fee_bps"`
	Admin      string `json:"admin,omitempty"`
}
