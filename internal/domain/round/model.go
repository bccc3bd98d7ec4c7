package round

import (
	"fmt"
	"time"
)

// Status represents the lifecycle phase of a round.
type Status string

const (
	// StatusDraft is the mutable setup phase: membership and exclusions open.
	StatusDraft Status = "draft"
	// StatusReveal means assignments exist and givers are being shown theirs.
	StatusReveal Status = "reveal"
	// StatusIndication is the recommendation-submission window, followed by
	// the rating window once RatingStartsAt elapses.
	StatusIndication Status = "indication"
	// StatusReopened is the corrective side loop after close, for fixing
	// ratings. Privileged actors only.
	StatusReopened Status = "reopened"
	// StatusClosed is terminal (barring a privileged reopen).
	StatusClosed Status = "closed"
)

// ParseStatus validates a status received from a caller.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusReveal, StatusIndication, StatusReopened, StatusClosed:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
}

// Round is one instance of the recommendation-exchange cycle.
type Round struct {
	ID             string     `json:"id"`
	CreatorID      int64      `json:"creator_id"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	RatingStartsAt *time.Time `json:"rating_starts_at,omitempty"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
	ReopenedCount  int        `json:"reopened_count"`
}

// Participant is a member joined to a round. The set is mutable only while
// the round is in draft; the creator is always a member.
type Participant struct {
	RoundID  string    `json:"round_id"`
	UserID   int64     `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// PairExclusion forbids two members from being matched in either direction.
// Stored normalized with UserA < UserB.
type PairExclusion struct {
	RoundID string `json:"round_id"`
	UserA   int64  `json:"user_a"`
	UserB   int64  `json:"user_b"`
}

// NewPairExclusion normalizes the member order.
func NewPairExclusion(roundID string, a, b int64) PairExclusion {
	if b < a {
		a, b = b, a
	}
	return PairExclusion{RoundID: roundID, UserA: a, UserB: b}
}

// Assignment pairs a giver with the receiver they must recommend to. Created
// as a complete set at the draw; immutable afterward except for Revealed,
// which only ever flips false to true.
type Assignment struct {
	RoundID    string `json:"round_id"`
	GiverID    int64  `json:"giver_id"`
	ReceiverID int64  `json:"receiver_id"`
	Revealed   bool   `json:"revealed"`
}

// AssignmentView is the caller-facing shape of an assignment: the receiver
// stays hidden until the giver has been shown it.
type AssignmentView struct {
	GiverID    int64  `json:"giver_id"`
	ReceiverID *int64 `json:"receiver_id,omitempty"`
	Revealed   bool   `json:"revealed"`
}

// View hides the receiver of an unrevealed assignment.
func (a Assignment) View() AssignmentView {
	v := AssignmentView{GiverID: a.GiverID, Revealed: a.Revealed}
	if a.Revealed {
		receiver := a.ReceiverID
		v.ReceiverID = &receiver
	}
	return v
}

// Actor identifies the acting member and the role flags resolved by the
// identity collaborator. A zero UserID marks system-initiated activity.
type Actor struct {
	UserID      int64 `json:"user_id"`
	IsOwner     bool  `json:"is_owner"`
	IsModerator bool  `json:"is_moderator"`
}

// Privileged reports whether the actor may use owner/moderator operations.
func (a Actor) Privileged() bool {
	return a.IsOwner || a.IsModerator
}

// Snapshot is the full round state returned after every successful mutation.
// Exclusions are included while the round is editable; assignments once a
// draw exists.
type Snapshot struct {
	Round        Round            `json:"round"`
	Participants []Participant    `json:"participants"`
	Exclusions   []PairExclusion  `json:"exclusions,omitempty"`
	Assignments  []AssignmentView `json:"assignments,omitempty"`
}
