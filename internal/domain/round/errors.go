package round

import "errors"

// Engine error taxonomy. The recommendation and rating services wrap these
// same sentinels so transport can map every domain failure uniformly.
var (
	// ErrNotFound indicates a referenced round, participant, or assignment
	// is absent.
	ErrNotFound = errors.New("not found")
	// ErrActiveRoundExists indicates another round is still open; only one
	// non-closed round may exist at a time.
	ErrActiveRoundExists = errors.New("an open round already exists")
	// ErrPhaseConflict indicates the action is not valid for the round's
	// current status or timing window.
	ErrPhaseConflict = errors.New("action not allowed in the current round phase")
	// ErrPermission indicates the actor lacks the required role or ownership.
	ErrPermission = errors.New("permission denied")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("invalid input")
	// ErrDuplicate indicates the resource already exists.
	ErrDuplicate = errors.New("resource already exists")
)
