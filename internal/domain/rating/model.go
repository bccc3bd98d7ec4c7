package rating

import "time"

// Rating is the receiver's verdict on what they were recommended. One per
// (round, receiver), score 1 to 5.
type Rating struct {
	RoundID    string    `json:"round_id"`
	ReceiverID int64     `json:"receiver_id"`
	Score      int       `json:"score"`
	Review     string    `json:"review,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
