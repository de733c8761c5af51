package rules

import (
	"errors"
	"fmt"
)

// Reason is a machine-readable rejection code.
type Reason string

const (
	ReasonWrongCount           Reason = "WRONG_COUNT"
	ReasonWrongRankCount       Reason = "WRONG_RANK_COUNT"
	ReasonOutOfZone            Reason = "OUT_OF_ZONE"
	ReasonOutOfBounds          Reason = "OUT_OF_BOUNDS"
	ReasonOnLake               Reason = "ON_LAKE"
	ReasonDuplicateSquare      Reason = "DUPLICATE_SQUARE"
	ReasonUnknownRank          Reason = "UNKNOWN_RANK"
	ReasonWrongPhase           Reason = "WRONG_PHASE"
	ReasonNotYourTurn          Reason = "NOT_YOUR_TURN"
	ReasonSetupAlreadyComplete Reason = "SETUP_ALREADY_COMPLETE"
	ReasonNoPiece              Reason = "NO_PIECE"
	ReasonNotYourPiece         Reason = "NOT_YOUR_PIECE"
	ReasonImmovable            Reason = "IMMOVABLE"
	ReasonOccupiedByOwn        Reason = "OCCUPIED_BY_OWN"
	ReasonIllegalPattern       Reason = "ILLEGAL_PATTERN"
	ReasonBlocked              Reason = "BLOCKED"
)

// RuleError is a rejected precondition. The game state is left unchanged when one is returned.
type RuleError struct {
	Reason Reason
	Detail string
}

func (e *RuleError) Error() string {
	if e.Detail == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

func reject(reason Reason, format string, args ...interface{}) *RuleError {
	return &RuleError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ReasonOf extracts the rejection code from err, looking through wrapping.
func ReasonOf(err error) (Reason, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}

// IsRejection reports whether err is a rule rejection with the given reason.
func IsRejection(err error, reason Reason) bool {
	got, ok := ReasonOf(err)
	return ok && got == reason
}
