package domain

import "fmt"

// Outcome identifies one of the three possible results of an event.
type Outcome uint8

const (
	OutcomeHome Outcome = iota
	OutcomeAway
	OutcomeDraw

	// OutcomeCount is the number of pools kept per event.
	OutcomeCount = 3
)

// String returns the wire representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeHome:
		return "home"
	case OutcomeAway:
		return "away"
	case OutcomeDraw:
		return "draw"
	default:
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
}

// Valid reports whether o is one of the three recognized outcome codes.
func (o Outcome) Valid() bool {
	return o < OutcomeCount
}

// ParseOutcome converts a wire string into an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch s {
	case "home":
		return OutcomeHome, nil
	case "away":
		return OutcomeAway, nil
	case "draw":
		return OutcomeDraw, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}
