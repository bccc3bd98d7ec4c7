package round

import (
	"fmt"
	"time"
)

// Action names a gated mutation. Every sub-resource write consults Check
// before touching state.
type Action string

const (
	ActionEditParticipants Action = "participants.edit"
	ActionEditExclusions   Action = "exclusions.edit"
	ActionDraw             Action = "round.draw"
	ActionReveal           Action = "round.reveal"
	ActionStartIndication  Action = "round.indication"
	ActionClose            Action = "round.close"
	ActionReopen           Action = "round.reopen"
	ActionFinalize         Action = "round.finalize"
	ActionForceUpdate      Action = "round.force_update"
	ActionDelete           Action = "round.delete"
	ActionRecommend        Action = "recommendation.save"
	ActionComment          Action = "recommendation.comment"
	ActionRate             Action = "rating.save"
)

// Check gates an action on the round's phase, its timing windows, and the
// actor's identity or role. It is pure: the result depends only on its
// arguments, and state is never touched. Violations come back as
// ErrPermission or ErrPhaseConflict.
func Check(action Action, r *Round, actor Actor, now time.Time) error {
	switch action {
	case ActionEditParticipants, ActionEditExclusions, ActionDraw:
		if actor.UserID != r.CreatorID {
			return ErrPermission
		}
		if r.Status != StatusDraft {
			return ErrPhaseConflict
		}

	case ActionReveal, ActionStartIndication:
		if actor.UserID != r.CreatorID {
			return ErrPermission
		}
		if r.Status != StatusReveal {
			return ErrPhaseConflict
		}

	case ActionClose:
		if actor.UserID != r.CreatorID && !actor.Privileged() {
			return ErrPermission
		}
		if r.Status != StatusIndication {
			return ErrPhaseConflict
		}

	case ActionReopen:
		if !actor.Privileged() {
			return ErrPermission
		}
		if r.Status != StatusClosed {
			return ErrPhaseConflict
		}

	case ActionFinalize:
		if !actor.Privileged() {
			return ErrPermission
		}
		if r.Status != StatusReopened {
			return ErrPhaseConflict
		}

	case ActionForceUpdate:
		// Administrative override: bypasses phase preconditions entirely,
		// so only the role gate applies.
		if !actor.Privileged() {
			return ErrPermission
		}

	case ActionDelete:
		if actor.UserID != r.CreatorID && !actor.Privileged() {
			return ErrPermission
		}

	case ActionRecommend:
		if r.Status != StatusIndication {
			return ErrPhaseConflict
		}
		if r.RatingStartsAt != nil && !now.Before(*r.RatingStartsAt) {
			return ErrPhaseConflict
		}

	case ActionComment:
		if r.Status == StatusDraft {
			return ErrPhaseConflict
		}

	case ActionRate:
		switch r.Status {
		case StatusReopened:
		case StatusIndication:
			if r.RatingStartsAt == nil || now.Before(*r.RatingStartsAt) {
				return ErrPhaseConflict
			}
		default:
			return ErrPhaseConflict
		}

	default:
		return fmt.Errorf("%w: unknown action %q", ErrValidation, action)
	}

	return nil
}

// Allowed is the predicate form of Check.
func Allowed(action Action, r *Round, actor Actor, now time.Time) bool {
	return Check(action, r, actor, now) == nil
}
