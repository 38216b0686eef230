package model

import "time"

// Player is a participant in exactly one session for its lifetime.
type Player struct {
	ID          string    `json:"id" bson:"_id"`
	SessionCode string    `json:"sessionCode" bson:"sessionCode"`
	Name        string    `json:"name" bson:"name"`
	Ready       bool      `json:"ready" bson:"ready"`
	Score       int       `json:"score" bson:"score"`
	HasAnswered bool      `json:"hasAnswered" bson:"hasAnswered"`
	IsHost      bool      `json:"isHost" bson:"isHost"`
	JoinedAt    time.Time `json:"joinedAt" bson:"joinedAt"`
}

// PlayerView is the public player representation.
type PlayerView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Ready       bool   `json:"ready"`
	Score       int    `json:"score"`
	HasAnswered bool   `json:"hasAnswered"`
	IsHost      bool   `json:"isHost"`
}

func (p *Player) View() PlayerView {
	return PlayerView{
		ID:          p.ID,
		Name:        p.Name,
		Ready:       p.Ready,
		Score:       p.Score,
		HasAnswered: p.HasAnswered,
		IsHost:      p.IsHost,
	}
}

// JoinResult is returned when a player joins (or rejoins) a session.
type JoinResult struct {
	Player PlayerView `json:"player"`
	Token  string     `json:"token"`
}
