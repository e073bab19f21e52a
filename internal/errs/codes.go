package errs

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Pool operation errors
	CodePoolLocked          Code = "POOL_LOCKED"
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeNoLiquidityInPool   Code = "NO_LIQUIDITY_IN_POOL"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeSlippageExceeded    Code = "SLIPPAGE_EXCEEDED"
	CodeOverflow            Code = "OVERFLOW"
	CodeInvalidCurveState   Code = "INVALID_CURVE_STATE"

	// Pool lifecycle errors
	CodeInvalidFee         Code = "INVALID_FEE"
	CodeInvalidAsset       Code = "INVALID_ASSET"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeAlreadyInitialized Code = "ALREADY_INITIALIZED"
	CodeInvalidRequest     Code = "INVALID_REQUEST"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"
)

// Sentinels for errors.Is matching by code.
var (
	ErrPoolLocked          = New(CodePoolLocked, "pool is locked")
	ErrInvalidAmount       = New(CodeInvalidAmount, "invalid amount")
	ErrNoLiquidityInPool   = New(CodeNoLiquidityInPool, "no liquidity in pool")
	ErrInsufficientBalance = New(CodeInsufficientBalance, "insufficient balance")
	ErrSlippageExceeded    = New(CodeSlippageExceeded, "slippage exceeded")
	ErrOverflow            = New(CodeOverflow, "arithmetic overflow")
	ErrInvalidCurveState   = New(CodeInvalidCurveState, "invalid curve state")
	ErrInvalidFee          = New(CodeInvalidFee, "invalid fee")
	ErrInvalidAsset        = New(CodeInvalidAsset, "invalid asset")
	ErrUnauthorized        = New(CodeUnauthorized, "unauthorized")
	ErrAlreadyInitialized  = New(CodeAlreadyInitialized, "already initialized")
	ErrInvalidRequest      = New(CodeInvalidRequest, "invalid request")
	ErrNotFound            = New(CodeNotFound, "not found")
	ErrConflict            = New(CodeConflict, "conflicting concurrent update")
)

// Retryable reports whether the code marks a transient condition where the
// whole invocation may be resubmitted unchanged.
func (c Code) Retryable() bool {
	return c == CodeConflict
}
