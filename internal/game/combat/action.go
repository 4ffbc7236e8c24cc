package combat

import (
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// ActionKind identifies what the player does on their turn.
// The zero value (ActionUnknown) is intentionally invalid.
type ActionKind int

const (
	ActionUnknown ActionKind = iota // zero value; intentionally invalid
	ActionAttack                    // basic attack
	ActionCast                      // cast a class skill; costs mp
	ActionDefend                    // brace for the next hit and recover mp
	ActionUseItem                   // use one consumable from the inventory
)

// String returns the wire name of the ActionKind.
//
// Postcondition: returns "attack", "cast", "defend", "use_item", or "unknown".
func (k ActionKind) String() string {
	switch k {
	case ActionAttack:
		return "attack"
	case ActionCast:
		return "cast"
	case ActionDefend:
		return "defend"
	case ActionUseItem:
		return "use_item"
	default:
		return "unknown"
	}
}

// ParseActionKind maps a wire name back to its ActionKind.
//
// Postcondition: Returns the kind, or ActionUnknown and an error wrapping gameerr.ErrValidation.
func ParseActionKind(s string) (ActionKind, error) {
	switch s {
	case "attack":
		return ActionAttack, nil
	case "cast":
		return ActionCast, nil
	case "defend":
		return ActionDefend, nil
	case "use_item":
		return ActionUseItem, nil
	default:
		return ActionUnknown, gameerr.Validation("unknown action %q", s)
	}
}

// Action is one player action submitted to a session.
type Action struct {
	Kind ActionKind
	// Ref is the skill id for ActionCast and the consumable id for ActionUseItem.
	Ref string
}

// Attack returns a basic attack action.
func Attack() Action { return Action{Kind: ActionAttack} }

// Cast returns an action casting skillID.
func Cast(skillID string) Action { return Action{Kind: ActionCast, Ref: skillID} }

// Defend returns a defend action.
func Defend() Action { return Action{Kind: ActionDefend} }

// UseItem returns an action consuming one itemID.
func UseItem(itemID string) Action { return Action{Kind: ActionUseItem, Ref: itemID} }

// validate checks the action's shape, independent of session state.
func (a Action) validate() error {
	switch a.Kind {
	case ActionAttack, ActionDefend:
		return nil
	case ActionCast, ActionUseItem:
		if a.Ref == "" {
			return gameerr.Validation("%s requires an id", a.Kind)
		}
		return nil
	default:
		return gameerr.Validation("unknown action kind %d", int(a.Kind))
	}
}
