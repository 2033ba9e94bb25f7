package repository

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/kstielfps/VATImposter/internal/model"
)

type roomRow struct {
	Code        string           `gorm:"primaryKey;size:6"`
	Phase       string           `gorm:"size:16;not null;index"`
	CreatorName string           `gorm:"size:10;not null"`
	Config      model.RoomConfig `gorm:"embedded;embeddedPrefix:cfg_"`

	ActualImpostors int `gorm:"not null;default:0"`
	ActualWhitemen  int `gorm:"not null;default:0"`
	ActualClowns    int `gorm:"not null;default:0"`

	MajorityGroupID  string `gorm:"size:36"`
	WhitemanGroupID  string `gorm:"size:36"`
	MajorityWordID   string `gorm:"size:36"`
	MajorityWordText string `gorm:"size:64"`
	MinorityWordID   string `gorm:"size:36"`
	MinorityWordText string `gorm:"size:64"`

	CurrentRound     int    `gorm:"not null;default:0"`
	CurrentTurnIndex int    `gorm:"not null;default:0"`
	WinningTeam      string `gorm:"size:16"`

	CreatedAt  time.Time `gorm:"not null"`
	StartedAt  *time.Time
	FinishedAt *time.Time

	NextSeq int   `gorm:"not null;default:0"`
	Version int64 `gorm:"not null;default:0"`
}

func (roomRow) TableName() string { return "rooms" }

type participantRow struct {
	ID             string `gorm:"primaryKey;size:16"`
	RoomCode       string `gorm:"size:6;not null;index;uniqueIndex:idx_participant_name"`
	Name           string `gorm:"size:10;not null;uniqueIndex:idx_participant_name"`
	Seq            int    `gorm:"not null"`
	Role           string `gorm:"size:16"`
	SecretWordID   string `gorm:"size:36"`
	SecretWordText string `gorm:"size:64"`
	Eliminated     bool   `gorm:"not null;default:false"`
	IsCreator      bool   `gorm:"not null;default:false"`

	NudgeMeter      int `gorm:"not null"`
	NudgeMeterRound int `gorm:"not null;default:0"`

	ClownGoal          string `gorm:"size:16"`
	KnownImpostors     datatypes.JSON
	GoalReadyRound     int  `gorm:"not null;default:0"`
	ChaosUsed          bool `gorm:"not null;default:false"`
	FailedRound        int  `gorm:"not null;default:0"`
	ImpostorKnowsClown bool `gorm:"not null;default:false"`

	JoinedAt time.Time `gorm:"not null"`
}

func (participantRow) TableName() string { return "participants" }

type hintRow struct {
	ID            string    `gorm:"primaryKey;size:36"`
	RoomCode      string    `gorm:"size:6;not null;uniqueIndex:idx_hint_slot"`
	ParticipantID string    `gorm:"size:16;not null;uniqueIndex:idx_hint_slot"`
	Round         int       `gorm:"not null;uniqueIndex:idx_hint_slot"`
	Content       string    `gorm:"size:100;not null"`
	Filler        bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (hintRow) TableName() string { return "hints" }

// voteRow carries Slot so one unique index covers both vote kinds: it is
// empty for elimination votes and the target for clown guesses.
type voteRow struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomCode  string    `gorm:"size:6;not null;uniqueIndex:idx_vote_slot"`
	VoterID   string    `gorm:"size:16;not null;uniqueIndex:idx_vote_slot"`
	Round     int       `gorm:"not null;uniqueIndex:idx_vote_slot"`
	Kind      string    `gorm:"size:16;not null;uniqueIndex:idx_vote_slot"`
	Slot      string    `gorm:"size:16;not null;uniqueIndex:idx_vote_slot"`
	TargetID  string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (voteRow) TableName() string { return "votes" }

type nudgeRow struct {
	ID           string    `gorm:"primaryKey;size:36"`
	RoomCode     string    `gorm:"size:6;not null;index"`
	FromID       string    `gorm:"size:16;not null"`
	ToID         string    `gorm:"size:16;not null;index"`
	Round        int       `gorm:"not null"`
	Acknowledged bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (nudgeRow) TableName() string { return "nudges" }

type wordGroupRow struct {
	ID    string    `gorm:"primaryKey;size:36"`
	Name  string    `gorm:"size:64;not null;uniqueIndex"`
	Words []wordRow `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
}

func (wordGroupRow) TableName() string { return "word_groups" }

type wordRow struct {
	ID      string `gorm:"primaryKey;size:36"`
	GroupID string `gorm:"size:36;not null;index"`
	Text    string `gorm:"size:64;not null"`
}

func (wordRow) TableName() string { return "words" }

func wordRefColumns(w *model.WordRef) (string, string) {
	if w == nil {
		return "", ""
	}
	return w.ID, w.Text
}

func wordRefFromColumns(id, text string) *model.WordRef {
	if id == "" {
		return nil
	}
	return &model.WordRef{ID: id, Text: text}
}

func toRoomRow(r *model.Room) *roomRow {
	row := &roomRow{
		Code:             r.Code,
		Phase:            string(r.Phase),
		CreatorName:      r.CreatorName,
		Config:           r.Config,
		ActualImpostors:  r.ActualImpostors,
		ActualWhitemen:   r.ActualWhitemen,
		ActualClowns:     r.ActualClowns,
		MajorityGroupID:  r.MajorityGroupID,
		WhitemanGroupID:  r.WhitemanGroupID,
		CurrentRound:     r.CurrentRound,
		CurrentTurnIndex: r.CurrentTurnIndex,
		WinningTeam:      string(r.WinningTeam),
		CreatedAt:        r.CreatedAt,
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		NextSeq:          r.NextSeq,
		Version:          r.Version,
	}
	row.MajorityWordID, row.MajorityWordText = wordRefColumns(r.MajorityWord)
	row.MinorityWordID, row.MinorityWordText = wordRefColumns(r.MinorityWord)
	return row
}

func (row *roomRow) toModel() model.Room {
	return model.Room{
		Code:             row.Code,
		Phase:            model.Phase(row.Phase),
		CreatorName:      row.CreatorName,
		Config:           row.Config,
		ActualImpostors:  row.ActualImpostors,
		ActualWhitemen:   row.ActualWhitemen,
		ActualClowns:     row.ActualClowns,
		MajorityGroupID:  row.MajorityGroupID,
		WhitemanGroupID:  row.WhitemanGroupID,
		MajorityWord:     wordRefFromColumns(row.MajorityWordID, row.MajorityWordText),
		MinorityWord:     wordRefFromColumns(row.MinorityWordID, row.MinorityWordText),
		CurrentRound:     row.CurrentRound,
		CurrentTurnIndex: row.CurrentTurnIndex,
		WinningTeam:      model.Team(row.WinningTeam),
		CreatedAt:        row.CreatedAt,
		StartedAt:        row.StartedAt,
		FinishedAt:       row.FinishedAt,
		NextSeq:          row.NextSeq,
		Version:          row.Version,
	}
}

func toParticipantRow(code string, p *model.Participant) (participantRow, error) {
	known, err := json.Marshal(p.Clown.KnownImpostors)
	if err != nil {
		return participantRow{}, err
	}
	row := participantRow{
		ID:                 p.ID,
		RoomCode:           code,
		Name:               p.Name,
		Seq:                p.Seq,
		Role:               string(p.Role),
		Eliminated:         p.Eliminated,
		IsCreator:          p.IsCreator,
		NudgeMeter:         p.NudgeMeter,
		NudgeMeterRound:    p.NudgeMeterRound,
		ClownGoal:          string(p.Clown.Goal),
		KnownImpostors:     datatypes.JSON(known),
		GoalReadyRound:     p.Clown.GoalReadyRound,
		ChaosUsed:          p.Clown.ChaosUsed,
		FailedRound:        p.Clown.FailedRound,
		ImpostorKnowsClown: p.ImpostorKnowsClown,
		JoinedAt:           p.JoinedAt,
	}
	row.SecretWordID, row.SecretWordText = wordRefColumns(p.SecretWord)
	return row, nil
}

func (row *participantRow) toModel() (*model.Participant, error) {
	var known []string
	if len(row.KnownImpostors) > 0 {
		if err := json.Unmarshal(row.KnownImpostors, &known); err != nil {
			return nil, err
		}
	}
	p := &model.Participant{
		ID:                 row.ID,
		Name:               row.Name,
		Seq:                row.Seq,
		Role:               model.Role(row.Role),
		SecretWord:         wordRefFromColumns(row.SecretWordID, row.SecretWordText),
		Eliminated:         row.Eliminated,
		IsCreator:          row.IsCreator,
		NudgeMeter:         row.NudgeMeter,
		NudgeMeterRound:    row.NudgeMeterRound,
		ImpostorKnowsClown: row.ImpostorKnowsClown,
		JoinedAt:           row.JoinedAt,
	}
	p.Clown = model.ClownProgress{
		KnownImpostors: known,
		Goal:           model.ClownGoal(row.ClownGoal),
		GoalReadyRound: row.GoalReadyRound,
		ChaosUsed:      row.ChaosUsed,
		FailedRound:    row.FailedRound,
	}
	return p, nil
}

func toHintRow(code string, h *model.Hint) hintRow {
	return hintRow{
		ID:            h.ID,
		RoomCode:      code,
		ParticipantID: h.ParticipantID,
		Round:         h.Round,
		Content:       h.Content,
		Filler:        h.Filler,
		CreatedAt:     h.CreatedAt,
	}
}

func (row *hintRow) toModel() *model.Hint {
	return &model.Hint{
		ID:            row.ID,
		ParticipantID: row.ParticipantID,
		Round:         row.Round,
		Content:       row.Content,
		Filler:        row.Filler,
		CreatedAt:     row.CreatedAt,
	}
}

func toVoteRow(code string, v *model.Vote) voteRow {
	return voteRow{
		ID:        v.ID,
		RoomCode:  code,
		VoterID:   v.VoterID,
		Round:     v.Round,
		Kind:      string(v.Kind),
		Slot:      v.Slot(),
		TargetID:  v.TargetID,
		CreatedAt: v.CreatedAt,
	}
}

func (row *voteRow) toModel() *model.Vote {
	return &model.Vote{
		ID:        row.ID,
		VoterID:   row.VoterID,
		TargetID:  row.TargetID,
		Round:     row.Round,
		Kind:      model.VoteKind(row.Kind),
		CreatedAt: row.CreatedAt,
	}
}

func toNudgeRow(code string, n *model.Nudge) nudgeRow {
	return nudgeRow{
		ID:           n.ID,
		RoomCode:     code,
		FromID:       n.FromID,
		ToID:         n.ToID,
		Round:        n.Round,
		Acknowledged: n.Acknowledged,
		CreatedAt:    n.CreatedAt,
	}
}

func (row *nudgeRow) toModel() *model.Nudge {
	return &model.Nudge{
		ID:           row.ID,
		FromID:       row.FromID,
		ToID:         row.ToID,
		Round:        row.Round,
		Acknowledged: row.Acknowledged,
		CreatedAt:    row.CreatedAt,
	}
}
