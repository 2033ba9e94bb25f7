package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kstielfps/VATImposter/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// AuthService issues and checks room-scoped participant tokens. A token is
// the only proof of identity an action carries.
type AuthService struct {
	jwtSecret []byte
	ttl       time.Duration
}

func NewAuthService(secret string, ttl time.Duration) *AuthService {
	if secret == "" {
		secret = "super-secret-key-change-in-production"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{
		jwtSecret: []byte(secret),
		ttl:       ttl,
	}
}

// IssueToken creates a token for a participant of one room
func (s *AuthService) IssueToken(roomCode, participantID, name string) (string, error) {
	now := time.Now()
	claims := &model.ParticipantClaims{
		RoomCode:      roomCode,
		ParticipantID: participantID,
		Name:          name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   participantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a participant JWT and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*model.ParticipantClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.ParticipantClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.ParticipantClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
