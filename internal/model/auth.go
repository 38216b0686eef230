package model

import "github.com/golang-jwt/jwt/v5"

// PlayerClaims are JWT claims for session-scoped player tokens.
type PlayerClaims struct {
	SessionCode string `json:"sessionCode"`
	PlayerID    string `json:"playerId"`
	jwt.RegisteredClaims
}
