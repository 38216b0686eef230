package model

import "time"

type SessionState string

const (
	SessionLobby     SessionState = "lobby"
	SessionActive    SessionState = "active"
	SessionFinished  SessionState = "finished"
	SessionCancelled SessionState = "cancelled"
)

// NoQuestion is the CurrentIndex value when a session has no current question.
const NoQuestion = -1

// Session is one playthrough, identified by a short code shared by all its
// players. Once active, QuestionIDs is fixed and CurrentIndex walks it.
type Session struct {
	Code              string       `json:"code" bson:"_id"`
	State             SessionState `json:"state" bson:"state"`
	QuestionIDs       []string     `json:"questionIds" bson:"questionIds"`
	CurrentIndex      int          `json:"currentIndex" bson:"currentIndex"`
	QuestionCount     int          `json:"questionCount" bson:"questionCount"`
	QuestionStartedAt *time.Time   `json:"questionStartedAt,omitempty" bson:"questionStartedAt,omitempty"`
	QuestionEndsAt    *time.Time   `json:"questionEndsAt,omitempty" bson:"questionEndsAt,omitempty"`
	CreatedAt         time.Time    `json:"createdAt" bson:"createdAt"`
	StartedAt         *time.Time   `json:"startedAt,omitempty" bson:"startedAt,omitempty"`
	EndedAt           *time.Time   `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// CurrentQuestionID returns the id of the question in play, if any.
func (s *Session) CurrentQuestionID() (string, bool) {
	if s.State != SessionActive || s.CurrentIndex == NoQuestion || s.CurrentIndex >= len(s.QuestionIDs) {
		return "", false
	}
	return s.QuestionIDs[s.CurrentIndex], true
}

// SessionView is the public session representation returned by queries.
type SessionView struct {
	Code            string        `json:"code"`
	State           SessionState  `json:"state"`
	QuestionCount   int           `json:"questionCount"`
	QuestionNumber  int           `json:"questionNumber,omitempty"` // 1-based, 0 when no current question
	CurrentQuestion *QuestionView `json:"currentQuestion,omitempty"`
	QuestionEndsAt  *time.Time    `json:"questionEndsAt,omitempty"`
	Players         []PlayerView  `json:"players"`
}
