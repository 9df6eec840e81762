package handler

import (
	"errors"
	"net/http"

	"github.com/parlayd/parlayd/internal/domain"
)

// statusFor maps domain errors onto HTTP status codes. Unknown errors map to
// 500 and should be logged by the caller.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoundNotFound),
		errors.Is(err, domain.ErrBetNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrNotBetOwner),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	case errors.Is(err, domain.ErrInvalidStake),
		errors.Is(err, domain.ErrStakeTooLarge),
		errors.Is(err, domain.ErrInvalidLegCount),
		errors.Is(err, domain.ErrInvalidEventIndex),
		errors.Is(err, domain.ErrInvalidOutcome),
		errors.Is(err, domain.ErrDuplicateLegEvent),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidShares),
		errors.Is(err, domain.ErrOverflow):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrRoundNotSeeded),
		errors.Is(err, domain.ErrRoundSeeded),
		errors.Is(err, domain.ErrRoundNotSettled),
		errors.Is(err, domain.ErrRoundSettled),
		errors.Is(err, domain.ErrRevenueFinalized),
		errors.Is(err, domain.ErrAlreadyClaimed),
		errors.Is(err, domain.ErrSlippage),
		errors.Is(err, domain.ErrRoundPayoutCap):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInsufficientLiquidity):
		return http.StatusUnprocessableEntity

	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err to a status and writes the error body. It
// reports whether the error was a recognized domain error; a false return
// means a 500 was written and the caller should log the failure.
func writeDomainError(w http.ResponseWriter, err error) bool {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, "internal server error")
		return false
	}
	writeError(w, status, err.Error())
	return true
}
