package notify

import "time"

// Event names broadcast to connected clients whenever round or sub-resource
// state changes.
const (
	EventRoundCreated                 = "round_created"
	EventRoundParticipantsChanged     = "round_participants_changed"
	EventRoundPairExclusionsChanged   = "round_pair_exclusions_changed"
	EventRoundDrawCompleted           = "round_draw_completed"
	EventRoundRevealProgress          = "round_reveal_progress"
	EventRoundIndicationStarted       = "round_indication_started"
	EventRoundRatingSaved             = "round_rating_saved"
	EventRoundRatingCleared           = "round_rating_cleared"
	EventRoundReopened                = "round_reopened"
	EventRoundReopenedFinalized       = "round_reopened_finalized"
	EventRoundClosed                  = "round_closed"
	EventRoundUpdated                 = "round_updated"
	EventRoundDeleted                 = "round_deleted"
	EventRecommendationSaved          = "recommendation_saved"
	EventRecommendationCommentChanged = "recommendation_comment_changed"
	EventRecommendationCommentLiked   = "recommendation_comment_liked"
)

// Event is one named state change. An ActorUserID of 0 marks
// system-initiated activity.
type Event struct {
	Name        string
	RoundID     string
	ActorUserID int64
	Fields      map[string]any
}

// message is the wire form sent to clients.
type message struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// payload always carries roundId, actorUserId, and the server timestamp,
// plus any event-specific fields.
func (e Event) payload(at time.Time) map[string]any {
	p := make(map[string]any, len(e.Fields)+3)
	for k, v := range e.Fields {
		p[k] = v
	}
	p["roundId"] = e.RoundID
	p["actorUserId"] = e.ActorUserID
	p["at"] = at.UTC()
	return p
}
