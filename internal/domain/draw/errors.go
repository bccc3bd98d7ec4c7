package draw

import "errors"

var (
	// ErrInfeasible indicates no complete assignment exists for the given
	// participants under the current exclusions.
	ErrInfeasible = errors.New("no valid assignment exists under the current exclusions")
	// ErrUnknownMember indicates an exclusion references a member outside the
	// participant set.
	ErrUnknownMember = errors.New("exclusion references a non-participant")
)
