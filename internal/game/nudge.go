package game

import "github.com/kstielfps/VATImposter/internal/model"

type NudgeOutcome struct {
	Nudge      *model.Nudge `json:"nudge"`
	Meter      int          `json:"meter"`
	ForcedSkip bool         `json:"forced_skip"`
}

// Nudge pings a target during hint rounds and drains their meter by one. A
// turn holder whose meter is empty gets a filler hint and loses the turn.
// Rate limiting per pair is the caller's job.
func (e *Engine) Nudge(st *model.RoomState, actorID, targetID string) (*NudgeOutcome, error) {
	from, err := RequireParticipant(st, actorID)
	if err != nil {
		return nil, err
	}
	room := &st.Room
	if room.Phase != model.PhaseHints {
		return nil, InvalidPhase("nudges are only allowed during hint rounds")
	}
	if targetID == from.ID {
		return nil, Validation("you cannot nudge yourself")
	}
	target := st.Participant(targetID)
	if target == nil {
		return nil, NotFound("participant %s not found", targetID)
	}

	out := &NudgeOutcome{Nudge: st.AddNudge(from.ID, target.ID, room.CurrentRound, e.Now())}
	if target.NudgeMeterRound != room.CurrentRound {
		target.RefillNudgeMeter(room.CurrentRound)
	}
	target.NudgeMeter = max(0, target.NudgeMeter-1)
	out.Meter = target.NudgeMeter

	if target.NudgeMeter == 0 && !target.Eliminated {
		if turn := st.CurrentTurn(); turn != nil && turn.ID == target.ID {
			e.recordHint(st, target, FillerHint, true)
			out.ForcedSkip = true
		}
	}
	return out, nil
}

// AcknowledgeNudges marks every pending nudge to the actor as seen.
func (e *Engine) AcknowledgeNudges(st *model.RoomState, actorID string) (int, error) {
	p, err := RequireParticipant(st, actorID)
	if err != nil {
		return 0, err
	}
	return st.AcknowledgeNudges(p.ID), nil
}
