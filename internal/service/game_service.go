package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/kstielfps/VATImposter/internal/game"
	"github.com/kstielfps/VATImposter/internal/model"
)

// GameService exposes the in-game actions. Each one takes the room code and
// the caller's participant id, already authenticated by the transport.
type GameService struct {
	*Gateway
}

func NewGameService(gw *Gateway) *GameService {
	return &GameService{Gateway: gw}
}

// VoteResult is returned from a vote. Resolution is nil until the last
// expected vote of the round arrives.
type VoteResult struct {
	Resolution *game.Resolution `json:"resolution,omitempty"`
	State      *game.Snapshot   `json:"state"`
}

type GuessResult struct {
	Outcome *game.GuessOutcome `json:"outcome"`
	State   *game.Snapshot     `json:"state"`
}

type NudgeResult struct {
	Outcome *game.NudgeOutcome `json:"outcome"`
	State   *game.Snapshot     `json:"state"`
}

// Start assigns roles and words and opens the first hint round.
func (s *GameService) Start(ctx context.Context, code, actorID string) (*game.Snapshot, error) {
	groups, err := s.wordGroups(ctx, code)
	if err != nil {
		return nil, err
	}
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		return s.engine.Start(st, actorID, groups)
	})
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("room", code).
		Int("players", len(st.Participants)).
		Int("impostors", st.Room.ActualImpostors).
		Int("whitemen", st.Room.ActualWhitemen).
		Int("clowns", st.Room.ActualClowns).
		Msg("game started")
	s.broadcastState(st)
	return s.view(st, game.Viewer{ParticipantID: actorID}), nil
}

func (s *GameService) SubmitHint(ctx context.Context, code, actorID, content string) (*game.Snapshot, error) {
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		return s.engine.SubmitHint(st, actorID, content)
	})
	if err != nil {
		return nil, err
	}
	s.broadcastState(st)
	return s.view(st, game.Viewer{ParticipantID: actorID}), nil
}

func (s *GameService) SubmitVote(ctx context.Context, code, actorID, targetID string) (*VoteResult, error) {
	var res *game.Resolution
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		var err error
		res, err = s.engine.SubmitVote(st, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res != nil {
		s.broadcaster.BroadcastToAll(code, MsgVoteResult, res)
		log.Info().
			Str("room", code).
			Int("round", res.Round).
			Bool("tie", res.Tie).
			Str("eliminated", res.EliminatedID).
			Msg("votes resolved")
	}
	s.broadcastState(st)
	return &VoteResult{Resolution: res, State: s.view(st, game.Viewer{ParticipantID: actorID})}, nil
}

func (s *GameService) SubmitClownGuess(ctx context.Context, code, actorID, targetID string) (*GuessResult, error) {
	var out *game.GuessOutcome
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		var err error
		out, err = s.engine.SubmitClownGuess(st, actorID, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}
	// Guesses are private; only the clown's own view changes.
	s.broadcaster.BroadcastToPlayer(code, actorID, MsgState, s.view(st, game.Viewer{ParticipantID: actorID}))
	return &GuessResult{Outcome: out, State: s.view(st, game.Viewer{ParticipantID: actorID})}, nil
}

// UseChaosPower redraws every word and reveals the clown to the impostors.
func (s *GameService) UseChaosPower(ctx context.Context, code, actorID string) (*game.Snapshot, error) {
	groups, err := s.wordGroups(ctx, code)
	if err != nil {
		return nil, err
	}
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		return s.engine.UseChaosPower(st, actorID, groups)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("room", code).Msg("chaos power used")
	s.broadcastState(st)
	return s.view(st, game.Viewer{ParticipantID: actorID}), nil
}

// Nudge is rate limited per (sender, target) pair. The window is charged
// only once the engine has accepted the nudge, under the room lock.
func (s *GameService) Nudge(ctx context.Context, code, actorID, targetID string) (*NudgeResult, error) {
	var out *game.NudgeOutcome
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		var err error
		if out, err = s.engine.Nudge(st, actorID, targetID); err != nil {
			return err
		}
		ok, err := s.limiter.Allow(ctx, code, actorID, targetID)
		if err != nil {
			return err
		}
		if !ok {
			return game.Conflict("you can nudge the same player at most once per second")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	from := st.Participant(actorID)
	if from != nil {
		s.broadcaster.BroadcastToPlayer(code, targetID, MsgNudge, NudgePayload{
			From:       from.Name,
			Meter:      out.Meter,
			ForcedSkip: out.ForcedSkip,
		})
	}
	if out.ForcedSkip {
		log.Info().Str("room", code).Str("participant", targetID).Msg("turn skipped by nudges")
		s.broadcastState(st)
	} else {
		s.broadcaster.BroadcastToPlayer(code, targetID, MsgState, s.view(st, game.Viewer{ParticipantID: targetID}))
	}
	return &NudgeResult{Outcome: out, State: s.view(st, game.Viewer{ParticipantID: actorID})}, nil
}

// AcknowledgeNudges clears the caller's pending nudges.
func (s *GameService) AcknowledgeNudges(ctx context.Context, code, actorID string) (*game.Snapshot, error) {
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		_, err := s.engine.AcknowledgeNudges(st, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.view(st, game.Viewer{ParticipantID: actorID}), nil
}

// Restart brings a finished room back to the lobby and stops its countdown.
func (s *GameService) Restart(ctx context.Context, code, actorID string) (*game.Snapshot, error) {
	st, err := s.mutate(ctx, code, func(st *model.RoomState) error {
		return s.engine.Restart(st, actorID)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("room", code).Msg("room restarted")
	s.broadcastState(st)
	return s.view(st, game.Viewer{ParticipantID: actorID}), nil
}

// GetState returns the caller's snapshot. Spectators, and callers without a
// participant id, get the public view.
func (s *GameService) GetState(ctx context.Context, code, actorID string, spectator bool) (*game.Snapshot, error) {
	st, err := s.load(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.view(st, game.Viewer{ParticipantID: actorID, Spectator: spectator || actorID == ""}), nil
}
