package game

import (
	"github.com/kstielfps/VATImposter/internal/model"
)

// Counts are the role counts drawn for one game.
type Counts struct {
	Impostors int
	Whitemen  int
	Clowns    int
	Citizens  int
}

// DrawCounts randomizes how many of each role a game of n players gets.
// Requested values are ceilings.
func DrawCounts(cfg model.RoomConfig, n int, rnd Rand) Counts {
	if n <= 0 {
		return Counts{}
	}
	var c Counts
	c.Impostors = intBetween(rnd, 1, max(1, min(cfg.RequestedImpostors, n)))
	remaining := n - c.Impostors

	if hi := max(0, min(cfg.RequestedWhitemen, model.MaxWhitemen, remaining)); hi > 0 {
		c.Whitemen = intBetween(rnd, 0, hi)
	}
	remaining -= c.Whitemen

	if cfg.RequestedClowns > 0 && n >= model.ClownMinPlayers && remaining > 0 {
		c.Clowns = 1
	}
	c.Citizens = remaining - c.Clowns
	return c
}

// AssignWords picks the majority group, the majority/minority pair and, when
// whitemen are configured, the whiteman pool. It runs once per game: a room
// that already holds its words is left alone.
func AssignWords(room *model.Room, groups []*model.WordGroup, rnd Rand) error {
	if room.MajorityGroupID != "" && room.MajorityWord != nil && room.MinorityWord != nil {
		return nil
	}
	return drawWords(room, groups, rnd, "", "")
}

// drawWords replaces the room's words. Groups named by avoidMajority and
// avoidWhiteman are skipped whenever an alternative exists.
func drawWords(room *model.Room, groups []*model.WordGroup, rnd Rand, avoidMajority, avoidWhiteman string) error {
	playable := filterGroups(groups, func(g *model.WordGroup) bool { return g.Playable() })
	if len(playable) == 0 {
		return PreconditionFailed("no word group has at least two words")
	}

	candidates := preferOthers(playable, avoidMajority)
	g := candidates[rnd.IntN(len(candidates))]

	i := rnd.IntN(len(g.Words))
	j := rnd.IntN(len(g.Words) - 1)
	if j >= i {
		j++
	}
	room.MajorityGroupID = g.ID
	room.MajorityWord = g.Words[i].Ref()
	room.MinorityWord = g.Words[j].Ref()

	room.WhitemanGroupID = ""
	if room.Config.RequestedWhitemen > 0 {
		withWords := filterGroups(groups, func(wg *model.WordGroup) bool { return len(wg.Words) > 0 })
		pool := preferOthers(preferOthers(withWords, avoidWhiteman), g.ID)
		room.WhitemanGroupID = pool[rnd.IntN(len(pool))].ID
	}
	return nil
}

// AssignRoles shuffles the active participants and hands out roles and words.
// Words must already be assigned on the room.
func AssignRoles(st *model.RoomState, groups []*model.WordGroup, rnd Rand) Counts {
	players := st.Active()
	rnd.Shuffle(len(players), func(i, j int) {
		players[i], players[j] = players[j], players[i]
	})

	room := &st.Room
	c := DrawCounts(room.Config, len(players), rnd)
	room.ActualImpostors = c.Impostors
	room.ActualWhitemen = c.Whitemen
	room.ActualClowns = c.Clowns
	room.WinningTeam = model.TeamNone

	pool := findGroup(groups, room.WhitemanGroupID)
	for i, p := range players {
		p.Clown = model.ClownProgress{}
		p.ImpostorKnowsClown = false
		switch {
		case i < c.Impostors:
			p.Role = model.RoleImpostor
			p.SecretWord = room.MinorityWord.Clone()
		case i < c.Impostors+c.Whitemen:
			p.Role = model.RoleWhiteman
			p.SecretWord = whitemanWord(room, pool, rnd)
		case i < c.Impostors+c.Whitemen+c.Clowns:
			p.Role = model.RoleClown
			p.SecretWord = room.MinorityWord.Clone()
			p.Clown.Goal = model.ClownGoalFinding
		default:
			p.Role = model.RoleCitizen
			p.SecretWord = room.MajorityWord.Clone()
		}
	}
	return c
}

// applyWords hands the room's current words to active participants by role.
func applyWords(st *model.RoomState, groups []*model.WordGroup, rnd Rand) {
	room := &st.Room
	pool := findGroup(groups, room.WhitemanGroupID)
	for _, p := range st.Active() {
		switch p.Role {
		case model.RoleImpostor, model.RoleClown:
			p.SecretWord = room.MinorityWord.Clone()
		case model.RoleWhiteman:
			p.SecretWord = whitemanWord(room, pool, rnd)
		case model.RoleCitizen:
			p.SecretWord = room.MajorityWord.Clone()
		}
	}
}

// whitemanWord draws independently for each whiteman. Without a pool the
// whiteman shares the minority word.
func whitemanWord(room *model.Room, pool *model.WordGroup, rnd Rand) *model.WordRef {
	if pool == nil || len(pool.Words) == 0 {
		return room.MinorityWord.Clone()
	}
	return pool.Words[rnd.IntN(len(pool.Words))].Ref()
}

func filterGroups(groups []*model.WordGroup, keep func(*model.WordGroup) bool) []*model.WordGroup {
	var out []*model.WordGroup
	for _, g := range groups {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

// preferOthers drops the group with the given id unless nothing else is left.
func preferOthers(groups []*model.WordGroup, id string) []*model.WordGroup {
	if id == "" {
		return groups
	}
	others := filterGroups(groups, func(g *model.WordGroup) bool { return g.ID != id })
	if len(others) == 0 {
		return groups
	}
	return others
}

func findGroup(groups []*model.WordGroup, id string) *model.WordGroup {
	if id == "" {
		return nil
	}
	for _, g := range groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}
