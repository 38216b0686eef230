package model

import "time"

// NoChoice marks a timed-out answer; it is always incorrect.
const NoChoice = ""

// Answer records one player's submission for one question. Created when a
// submission is accepted and never updated afterward.
type Answer struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	SessionCode string    `json:"sessionCode" bson:"sessionCode"`
	QuestionID  string    `json:"questionId" bson:"questionId"`
	PlayerID    string    `json:"playerId" bson:"playerId"`
	ChoiceID    string    `json:"choiceId" bson:"choiceId"` // NoChoice on timeout
	Correct     bool      `json:"correct" bson:"correct"`
	SubmittedAt time.Time `json:"submittedAt" bson:"submittedAt"`
}

// SubmitResult is returned to the submitting player.
type SubmitResult struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}
