package combat

import (
	"fmt"
)

// ActionOption is one entry of the action menu shown to the player.
type ActionOption struct {
	Kind  ActionKind
	Ref   string
	Label string
	// Cost is the mp cost for casts and the remaining count for items.
	Cost    int
	Enabled bool
}

// PlayerView is the player half of a View.
type PlayerView struct {
	ID     string
	Class  string
	Level  int
	HP     int
	MaxHP  int
	MP     int
	MaxMP  int
	Gold   int
	HPFrac float64
	MPFrac float64
}

// EnemyView is the enemy half of a View.
type EnemyView struct {
	Name      string
	Level     int
	HP        int
	MaxHP     int
	HPFrac    float64
	Golden    bool
	Telegraph string
}

// View is a read-only snapshot of a session for rendering.
type View struct {
	Handle    string
	State     State
	Turn      int
	Wave      int
	MaxWaves  int
	Location  string
	Player    PlayerView
	Enemy     EnemyView
	Log       []string
	Effects   []string
	Available []ActionOption
}

func frac(cur, maxV int) float64 {
	if maxV <= 0 {
		return 0
	}
	return float64(cur) / float64(maxV)
}

// Describe snapshots the session. It does not change any state.
func (s *Session) Describe() View {
	p := s.Player
	v := View{
		Handle:   s.Handle,
		State:    s.state,
		Turn:     s.Turn,
		Wave:     s.Wave,
		MaxWaves: s.MaxWaves,
		Location: s.Location.Name,
		Player: PlayerView{
			ID:     p.ID,
			Class:  p.ClassID,
			Level:  p.Level,
			HP:     p.HP,
			MaxHP:  p.MaxHP,
			MP:     p.MP,
			MaxMP:  p.MaxMP,
			Gold:   p.Gold,
			HPFrac: frac(p.HP, p.MaxHP),
			MPFrac: frac(p.MP, p.MaxMP),
		},
		Log:     s.log.Lines(),
		Effects: s.Status.Names(),
	}
	if e := s.Enemy; e != nil {
		v.Enemy = EnemyView{
			Name:      e.Name,
			Level:     e.Level,
			HP:        e.HP,
			MaxHP:     e.MaxHP,
			HPFrac:    frac(e.HP, e.MaxHP),
			Golden:    e.Golden,
			Telegraph: string(e.Telegraph),
		}
	}
	if !s.state.Terminal() {
		v.Available = s.options()
	}
	return v
}

// options lists the action menu; disabled entries would be rejected by Submit.
func (s *Session) options() []ActionOption {
	out := []ActionOption{
		{Kind: ActionAttack, Label: "Attack", Enabled: true},
	}
	if cls, ok := s.mech.Catalog.Class(s.Player.ClassID); ok {
		for _, id := range cls.Skills {
			sk, ok := s.mech.Catalog.Skill(id)
			if !ok {
				continue
			}
			out = append(out, ActionOption{
				Kind:    ActionCast,
				Ref:     id,
				Label:   fmt.Sprintf("%s (%d MP)", sk.Name, sk.Cost),
				Cost:    sk.Cost,
				Enabled: s.Player.MP >= sk.Cost,
			})
		}
	}
	out = append(out, ActionOption{Kind: ActionDefend, Label: "Defend", Enabled: true})
	for _, id := range s.mech.Catalog.ConsumableIDs() {
		n := s.Player.Count(id)
		if n < 1 {
			continue
		}
		item, _ := s.mech.Catalog.Consumable(id)
		out = append(out, ActionOption{
			Kind:    ActionUseItem,
			Ref:     id,
			Label:   fmt.Sprintf("%s x%d", item.Name, n),
			Cost:    n,
			Enabled: true,
		})
	}
	return out
}
