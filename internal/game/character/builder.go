package character

import (
	"maps"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// Build constructs a new level-1 record for id on the given class path.
// HP and MP are left at zero; the caller resolves effective stats and fills them.
//
// Precondition: id must be non-empty; classID must name a catalog class.
// Postcondition: Returns a Character ready for stat resolution, or an error wrapping gameerr.ErrValidation.
func Build(id, classID string, cat *catalog.Catalog) (*Character, error) {
	if id == "" {
		return nil, gameerr.Validation("character id must not be empty")
	}
	if _, ok := cat.Class(classID); !ok {
		return nil, gameerr.Validation("unknown class %q", classID)
	}
	rules := cat.Rules()
	inv := maps.Clone(rules.StarterInventory)
	if inv == nil {
		inv = make(map[string]int)
	}
	return &Character{
		ID:        id,
		ClassID:   classID,
		Level:     1,
		Gold:      rules.StartingGold,
		Location:  rules.DefaultLocation,
		Inventory: inv,
	}, nil
}
