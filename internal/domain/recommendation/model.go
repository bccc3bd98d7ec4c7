package recommendation

import "time"

// Recommendation is the item a giver recommends to their assigned receiver.
// One per (round, giver).
type Recommendation struct {
	ID        string    `json:"id"`
	RoundID   string    `json:"round_id"`
	GiverID   int64     `json:"giver_id"`
	Title     string    `json:"title"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Comment is a participant's remark on a recommendation.
type Comment struct {
	ID               string    `json:"id"`
	RecommendationID string    `json:"recommendation_id"`
	AuthorID         int64     `json:"author_id"`
	Body             string    `json:"body"`
	CreatedAt        time.Time `json:"created_at"`
	Likes            int       `json:"likes"`
}
