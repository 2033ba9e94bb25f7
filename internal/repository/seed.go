package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kstielfps/VATImposter/internal/model"
)

//go:embed seed/word_groups.json
var defaultWordGroups []byte

type seedGroup struct {
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

// wordNamespace keeps seeded ids stable across runs and backends.
var wordNamespace = uuid.MustParse("6f1c2d8e-3a4b-4c5d-9e7f-0a1b2c3d4e5f")

// DefaultWordGroups returns the bundled word groups with deterministic ids.
func DefaultWordGroups() ([]*model.WordGroup, error) {
	var raw []seedGroup
	if err := json.Unmarshal(defaultWordGroups, &raw); err != nil {
		return nil, fmt.Errorf("decode bundled word groups: %w", err)
	}
	return buildWordGroups(raw), nil
}

func buildWordGroups(raw []seedGroup) []*model.WordGroup {
	groups := make([]*model.WordGroup, 0, len(raw))
	for _, sg := range raw {
		g := &model.WordGroup{
			ID:   uuid.NewSHA1(wordNamespace, []byte(sg.Name)).String(),
			Name: sg.Name,
		}
		for _, text := range sg.Words {
			g.Words = append(g.Words, model.Word{
				ID:      uuid.NewSHA1(wordNamespace, []byte(sg.Name+"/"+text)).String(),
				GroupID: g.ID,
				Text:    text,
			})
		}
		groups = append(groups, g)
	}
	return groups
}

// SeedWordGroups inserts the bundled groups that are not stored yet and
// reports how many were created.
func SeedWordGroups(ctx context.Context, repo WordGroupRepo) (int, error) {
	groups, err := DefaultWordGroups()
	if err != nil {
		return 0, err
	}
	created := 0
	for _, g := range groups {
		ok, err := repo.Save(ctx, g)
		if err != nil {
			return created, fmt.Errorf("save word group %q: %w", g.Name, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}
