package model

import "time"

// EventType tags the broadcast event union.
type EventType string

const (
	EventGameStarted        EventType = "game_started"
	EventNextQuestion       EventType = "next_question"
	EventAnswerSubmitted    EventType = "answer_submitted"
	EventAnswerProgress     EventType = "answer_progress"
	EventGameFinished       EventType = "game_finished"
	EventGameCancelled      EventType = "game_cancelled"
	EventPlayerJoined       EventType = "player_joined"
	EventPlayerReady        EventType = "player_ready"
	EventPlayerLeft         EventType = "player_left"
	EventPlayerRemoved      EventType = "player_removed"
	EventQuestionTimerStart EventType = "question_timer_start"
	EventQuestionTimeUp     EventType = "question_time_up"
)

// Event is the envelope published to a session topic. Payload is one of the
// *Payload structs below; events are built through the constructors so every
// variant carries its own payload type.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// QuestionPayload carries the public view of the question now in play.
// Used by both game_started and next_question.
type QuestionPayload struct {
	Question       QuestionView `json:"question"`
	QuestionNumber int          `json:"questionNumber"` // 1-based
	QuestionCount  int          `json:"questionCount"`
	EndsAt         time.Time    `json:"endsAt"`
}

type AnswerSubmittedPayload struct {
	PlayerID string `json:"playerId"`
	Correct  bool   `json:"correct"`
	Score    int    `json:"score"`
}

type AnswerProgressPayload struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// ScoreboardEntry is one row of the final standings, ordered by score
// descending with join order breaking ties.
type ScoreboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Rank     int    `json:"rank"`
}

type GameFinishedPayload struct {
	Scoreboard []ScoreboardEntry `json:"scoreboard"`
}

type GameCancelledPayload struct{}

type PlayerJoinedPayload struct {
	Player PlayerView `json:"player"`
}

type PlayerReadyPayload struct {
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type PlayerRemovedPayload struct {
	PlayerID string `json:"playerId"`
}

type QuestionTimerStartPayload struct {
	QuestionNumber int       `json:"questionNumber"`
	EndsAt         time.Time `json:"endsAt"`
}

type QuestionTimeUpPayload struct {
	QuestionNumber int `json:"questionNumber"`
}

func NewGameStarted(q QuestionView, number, count int, endsAt time.Time) Event {
	return Event{Type: EventGameStarted, Payload: QuestionPayload{Question: q, QuestionNumber: number, QuestionCount: count, EndsAt: endsAt}}
}

func NewNextQuestion(q QuestionView, number, count int, endsAt time.Time) Event {
	return Event{Type: EventNextQuestion, Payload: QuestionPayload{Question: q, QuestionNumber: number, QuestionCount: count, EndsAt: endsAt}}
}

func NewAnswerSubmitted(playerID string, correct bool, score int) Event {
	return Event{Type: EventAnswerSubmitted, Payload: AnswerSubmittedPayload{PlayerID: playerID, Correct: correct, Score: score}}
}

func NewAnswerProgress(answered, total int) Event {
	return Event{Type: EventAnswerProgress, Payload: AnswerProgressPayload{Answered: answered, Total: total}}
}

func NewGameFinished(scoreboard []ScoreboardEntry) Event {
	return Event{Type: EventGameFinished, Payload: GameFinishedPayload{Scoreboard: scoreboard}}
}

func NewGameCancelled() Event {
	return Event{Type: EventGameCancelled, Payload: GameCancelledPayload{}}
}

func NewPlayerJoined(p PlayerView) Event {
	return Event{Type: EventPlayerJoined, Payload: PlayerJoinedPayload{Player: p}}
}

func NewPlayerReady(playerID string, ready bool) Event {
	return Event{Type: EventPlayerReady, Payload: PlayerReadyPayload{PlayerID: playerID, Ready: ready}}
}

func NewPlayerLeft(playerID string) Event {
	return Event{Type: EventPlayerLeft, Payload: PlayerLeftPayload{PlayerID: playerID}}
}

func NewPlayerRemoved(playerID string) Event {
	return Event{Type: EventPlayerRemoved, Payload: PlayerRemovedPayload{PlayerID: playerID}}
}

func NewQuestionTimerStart(number int, endsAt time.Time) Event {
	return Event{Type: EventQuestionTimerStart, Payload: QuestionTimerStartPayload{QuestionNumber: number, EndsAt: endsAt}}
}

func NewQuestionTimeUp(number int) Event {
	return Event{Type: EventQuestionTimeUp, Payload: QuestionTimeUpPayload{QuestionNumber: number}}
}
