package model

import "time"

// RoomMeta is the small, cacheable summary of a live room.
type RoomMeta struct {
	Code         string    `json:"code"`
	Phase        Phase     `json:"phase"`
	CreatorName  string    `json:"creatorName"`
	Round        int       `json:"round"`
	Participants int       `json:"participants"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func MetaOf(st *RoomState, now time.Time) *RoomMeta {
	return &RoomMeta{
		Code:         st.Room.Code,
		Phase:        st.Room.Phase,
		CreatorName:  st.Room.CreatorName,
		Round:        st.Room.CurrentRound,
		Participants: len(st.Participants),
		UpdatedAt:    now,
	}
}
