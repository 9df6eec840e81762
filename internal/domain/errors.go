package domain

import "errors"

// Validation failures: the request is malformed. Rejected before any state
// mutation; the caller retries with corrected input.
var (
	ErrInvalidStake      = errors.New("stake must be positive")
	ErrStakeTooLarge     = errors.New("stake exceeds maximum bet")
	ErrInvalidLegCount   = errors.New("leg count out of range")
	ErrInvalidEventIndex = errors.New("event index out of range")
	ErrInvalidOutcome    = errors.New("invalid outcome code")
	ErrDuplicateLegEvent = errors.New("duplicate event in bet legs")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidShares     = errors.New("share count invalid")
)

// Capacity failures: the system is undercapitalized or a cap would be
// exceeded. Distinct from validation so callers can surface them differently.
var (
	ErrInsufficientLiquidity = errors.New("insufficient unlocked liquidity")
	ErrRoundPayoutCap        = errors.New("round payout limit reached")
)

// Phase-order failures: an operation was invoked outside its legal lifecycle
// window.
var (
	ErrRoundNotFound     = errors.New("round not found")
	ErrRoundNotSeeded    = errors.New("round not seeded")
	ErrRoundSeeded       = errors.New("round already seeded")
	ErrRoundNotSettled   = errors.New("round not settled")
	ErrRoundSettled      = errors.New("round already settled")
	ErrRevenueFinalized  = errors.New("revenue already finalized")
	ErrBetNotFound       = errors.New("bet not found")
	ErrAlreadyClaimed    = errors.New("bet already claimed")
	ErrNotBetOwner       = errors.New("account does not own bet")
)

// Arithmetic failures: a chained multiplication would overflow. The bet is
// rejected; nothing else is affected.
var ErrOverflow = errors.New("arithmetic overflow")

// Claim-time slippage protection.
var ErrSlippage = errors.New("payout below minimum acceptable")

// Infrastructure sentinels shared by stores and caches.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")
)
