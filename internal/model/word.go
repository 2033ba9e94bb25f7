package model

// WordGroup is shared reference data: a named set of interchangeable words.
type WordGroup struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Words []Word `json:"words" bson:"words"`
}

type Word struct {
	ID      string `json:"id" bson:"id"`
	GroupID string `json:"group_id" bson:"groupId"`
	Text    string `json:"text" bson:"text"`
}

func (w Word) Ref() *WordRef {
	return &WordRef{ID: w.ID, Text: w.Text}
}

// Playable reports whether a majority and a minority word can be drawn.
func (g *WordGroup) Playable() bool {
	return len(g.Words) >= 2
}
