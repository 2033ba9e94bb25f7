package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/model"
	"github.com/kstielfps/VATImposter/internal/repository"
)

// RoomService handles room lifecycle operations
type RoomService struct {
	*Gateway
	authSvc *AuthService
}

// NewRoomService creates a new room service
func NewRoomService(gw *Gateway, authSvc *AuthService) *RoomService {
	return &RoomService{
		Gateway: gw,
		authSvc: authSvc,
	}
}

// CreateRoom opens a waiting room with the caller as its creator
func (s *RoomService) CreateRoom(ctx context.Context, creatorName string, cfg model.RoomConfig) (*model.SessionResponse, error) {
	for attempts := 0; attempts < 10; attempts++ {
		code, err := s.generateRoomCode(ctx)
		if err != nil {
			return nil, s.mapError(ctx, "", fmt.Errorf("failed to generate room code: %w", err))
		}

		st, creator, err := s.engine.NewRoom(code, creatorName, cfg)
		if err != nil {
			return nil, s.mapError(ctx, code, err)
		}

		err = s.rooms.Create(ctx, st)
		if errors.Is(err, repository.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return nil, s.mapError(ctx, code, fmt.Errorf("failed to create room: %w", err))
		}

		if err := s.roomCache.SetMeta(ctx, code, model.MetaOf(st, time.Now())); err != nil {
			log.Warn().Err(err).Str("room", code).Msg("failed to cache room meta")
		}
		log.Info().Str("room", code).Str("creator", creator.Name).Msg("room created")
		return s.session(ctx, code, creator)
	}
	return nil, game.Internal(errors.New("failed to generate unique room code"))
}

// Join adds a named participant to an open room
func (s *RoomService) Join(ctx context.Context, code, name string) (*model.SessionResponse, error) {
	var joined *model.Participant
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		var err error
		joined, err = s.engine.Join(st, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("room", code).Str("participant", joined.ID).Str("name", joined.Name).Msg("participant joined")
	s.broadcastState(st)
	return s.session(ctx, code, joined)
}

// Configure changes the requested role counts and player limits
func (s *RoomService) Configure(ctx context.Context, code, actorID string, cfg model.RoomConfig) (*game.Snapshot, error) {
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		return s.engine.Configure(st, actorID, cfg)
	})
	if err != nil {
		return nil, err
	}
	s.broadcastState(st)
	return s.view(st, game.Viewer{ParticipantID: actorID}), nil
}

// Kick removes a participant from the lobby and drops their connection
func (s *RoomService) Kick(ctx context.Context, code, actorID, targetID string) (*game.Snapshot, error) {
	var kicked *model.Participant
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		var err error
		kicked, err = s.engine.Kick(st, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("room", code).Str("participant", kicked.ID).Msg("participant kicked")
	s.broadcaster.BroadcastToPlayer(code, kicked.ID, MsgKicked, KickedPayload{Redirect: "/"})
	s.broadcaster.DisconnectPlayer(code, kicked.ID)
	s.broadcastState(st)
	return s.view(st, game.Viewer{ParticipantID: actorID}), nil
}

// Close deletes the room in any phase. Only the creator may close it.
func (s *RoomService) Close(ctx context.Context, code, actorID string) error {
	var denied error
	deleted, err := s.rooms.DeleteWhere(ctx, code, func(st *model.RoomState) bool {
		_, denied = game.RequireCreator(st, actorID)
		return denied == nil
	})
	if err != nil {
		return s.mapError(ctx, code, err)
	}
	if denied != nil {
		return s.mapError(ctx, code, denied)
	}
	if !deleted {
		return s.mapError(ctx, code, repository.ErrRoomNotFound)
	}

	s.lifecycle.Cancel(code)
	if err := s.roomCache.MarkGone(ctx, code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to record closed room")
	}
	if err := s.limiter.Forget(ctx, code); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("failed to clear nudge limits")
	}
	s.broadcaster.BroadcastToAll(code, MsgRoomClosed, RoomClosedPayload{Reason: closeReasonClosed, Redirect: "/"})
	s.broadcaster.DisconnectRoom(code)
	log.Info().Str("room", code).Msg("room closed")
	return nil
}

// Authenticate resolves a token to the participant it was issued for. The
// token must belong to code; membership is checked by each action.
func (s *RoomService) Authenticate(code, token string) (*model.ParticipantClaims, error) {
	claims, err := s.authSvc.ValidateToken(token)
	if err != nil {
		return nil, game.Unauthorized("invalid or expired token")
	}
	if claims.RoomCode != code {
		return nil, game.Unauthorized("token was issued for another room")
	}
	return claims, nil
}

func (s *RoomService) session(ctx context.Context, code string, p *model.Participant) (*model.SessionResponse, error) {
	token, err := s.authSvc.IssueToken(code, p.ID, p.Name)
	if err != nil {
		return nil, s.mapError(ctx, code, fmt.Errorf("failed to issue token: %w", err))
	}
	return &model.SessionResponse{
		Code:          code,
		ParticipantID: p.ID,
		Name:          p.Name,
		Token:         token,
	}, nil
}

// generateRoomCode creates a 6-char code from the unambiguous alphabet
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = model.CodeAlphabet
	const codeLen = model.CodeLength

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		// Check uniqueness
		exists, err := s.rooms.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}
