package model

import "github.com/golang-jwt/jwt/v5"

// ParticipantClaims are JWT claims for room-scoped participant tokens
type ParticipantClaims struct {
	RoomCode      string `json:"roomCode"`
	ParticipantID string `json:"participantId"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// SessionResponse is returned after creating or joining a room
type SessionResponse struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Token         string `json:"token"`
}
