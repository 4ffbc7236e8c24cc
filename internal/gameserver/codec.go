package gameserver

import (
	"fmt"
	"maps"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/combat"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// Messages on the wire are google.protobuf.Struct values with snake_case keys.
// Numbers travel as doubles and are truncated back to int on decode.

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return s, nil
}

func strings2any(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func characterMap(c *character.Character) map[string]any {
	inv := make(map[string]any, len(c.Inventory))
	for k, v := range c.Inventory {
		inv[k] = v
	}
	return map[string]any{
		"id":         c.ID,
		"class_id":   c.ClassID,
		"level":      c.Level,
		"xp":         c.XP,
		"rebirths":   c.Rebirths,
		"hp":         c.HP,
		"max_hp":     c.MaxHP,
		"mp":         c.MP,
		"max_mp":     c.MaxMP,
		"gold":       c.Gold,
		"location":   c.Location,
		"weapon_id":  c.WeaponID,
		"armor_id":   c.ArmorID,
		"mount_id":   c.MountID,
		"inventory":  inv,
		"updated_at": c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func viewMap(v combat.View) map[string]any {
	opts := make([]any, len(v.Available))
	for i, o := range v.Available {
		opts[i] = map[string]any{
			"kind":    o.Kind.String(),
			"ref":     o.Ref,
			"label":   o.Label,
			"cost":    o.Cost,
			"enabled": o.Enabled,
		}
	}
	return map[string]any{
		"handle":    v.Handle,
		"state":     v.State.String(),
		"turn":      v.Turn,
		"wave":      v.Wave,
		"max_waves": v.MaxWaves,
		"location":  v.Location,
		"player": map[string]any{
			"id":      v.Player.ID,
			"class":   v.Player.Class,
			"level":   v.Player.Level,
			"hp":      v.Player.HP,
			"max_hp":  v.Player.MaxHP,
			"mp":      v.Player.MP,
			"max_mp":  v.Player.MaxMP,
			"gold":    v.Player.Gold,
			"hp_frac": v.Player.HPFrac,
			"mp_frac": v.Player.MPFrac,
		},
		"enemy": map[string]any{
			"name":      v.Enemy.Name,
			"level":     v.Enemy.Level,
			"hp":        v.Enemy.HP,
			"max_hp":    v.Enemy.MaxHP,
			"hp_frac":   v.Enemy.HPFrac,
			"golden":    v.Enemy.Golden,
			"telegraph": v.Enemy.Telegraph,
		},
		"log":       strings2any(v.Log),
		"effects":   strings2any(v.Effects),
		"available": opts,
	}
}

func outcomeMap(o *combat.Outcome) map[string]any {
	return map[string]any{
		"state":         o.State.String(),
		"waves_cleared": o.WavesCleared,
		"gold":          o.Gold,
		"xp":            o.XP,
		"drops":         strings2any(o.Drops),
		"levels_gained": o.LevelsGained,
		"persisted":     o.Persisted,
	}
}

// fields reads typed values out of a decoded Struct map. Missing keys read
// as zero values.
type fields map[string]any

func (f fields) str(key string) string {
	s, _ := f[key].(string)
	return s
}

func (f fields) num(key string) int {
	n, _ := f[key].(float64)
	return int(n)
}

func (f fields) float(key string) float64 {
	n, _ := f[key].(float64)
	return n
}

func (f fields) boolean(key string) bool {
	b, _ := f[key].(bool)
	return b
}

func (f fields) sub(key string) fields {
	m, _ := f[key].(map[string]any)
	return fields(m)
}

func (f fields) strs(key string) []string {
	list, _ := f[key].([]any)
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func (f fields) required(key string) (string, error) {
	s := f.str(key)
	if s == "" {
		return "", gameerr.Validation("%s is required", key)
	}
	return s, nil
}

func fieldsOf(s *structpb.Struct) fields {
	if s == nil {
		return fields{}
	}
	return fields(s.AsMap())
}

// DecodeCharacter rebuilds a record from a CreateCharacter, GetCharacter,
// Rebirth or Rest response.
func DecodeCharacter(s *structpb.Struct) *character.Character {
	f := fieldsOf(s)
	c := &character.Character{
		ID:        f.str("id"),
		ClassID:   f.str("class_id"),
		Level:     f.num("level"),
		XP:        f.num("xp"),
		Rebirths:  f.num("rebirths"),
		HP:        f.num("hp"),
		MaxHP:     f.num("max_hp"),
		MP:        f.num("mp"),
		MaxMP:     f.num("max_mp"),
		Gold:      f.num("gold"),
		Location:  f.str("location"),
		WeaponID:  f.str("weapon_id"),
		ArmorID:   f.str("armor_id"),
		MountID:   f.str("mount_id"),
		Inventory: make(map[string]int),
	}
	for k, v := range f.sub("inventory") {
		if n, ok := v.(float64); ok {
			c.Inventory[k] = int(n)
		}
	}
	if ts, err := time.Parse(time.RFC3339Nano, f.str("updated_at")); err == nil {
		c.UpdatedAt = ts
	}
	return c
}

// DecodeView rebuilds a View from a StartEncounter or Describe response, or
// the "view" member of a SubmitAction response.
func DecodeView(s *structpb.Struct) combat.View {
	return viewFromFields(fieldsOf(s))
}

func viewFromFields(f fields) combat.View {
	p, e := f.sub("player"), f.sub("enemy")
	v := combat.View{
		Handle:   f.str("handle"),
		State:    parseState(f.str("state")),
		Turn:     f.num("turn"),
		Wave:     f.num("wave"),
		MaxWaves: f.num("max_waves"),
		Location: f.str("location"),
		Player: combat.PlayerView{
			ID:     p.str("id"),
			Class:  p.str("class"),
			Level:  p.num("level"),
			HP:     p.num("hp"),
			MaxHP:  p.num("max_hp"),
			MP:     p.num("mp"),
			MaxMP:  p.num("max_mp"),
			Gold:   p.num("gold"),
			HPFrac: p.float("hp_frac"),
			MPFrac: p.float("mp_frac"),
		},
		Enemy: combat.EnemyView{
			Name:      e.str("name"),
			Level:     e.num("level"),
			HP:        e.num("hp"),
			MaxHP:     e.num("max_hp"),
			HPFrac:    e.float("hp_frac"),
			Golden:    e.boolean("golden"),
			Telegraph: e.str("telegraph"),
		},
		Log:     f.strs("log"),
		Effects: f.strs("effects"),
	}
	list, _ := f["available"].([]any)
	for _, raw := range list {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		o := fields(m)
		kind, err := combat.ParseActionKind(o.str("kind"))
		if err != nil {
			continue
		}
		v.Available = append(v.Available, combat.ActionOption{
			Kind:    kind,
			Ref:     o.str("ref"),
			Label:   o.str("label"),
			Cost:    o.num("cost"),
			Enabled: o.boolean("enabled"),
		})
	}
	return v
}

// DecodeResult rebuilds a SubmitAction response.
func DecodeResult(s *structpb.Struct) combat.Result {
	f := fieldsOf(s)
	r := combat.Result{View: viewFromFields(f.sub("view"))}
	if o := f.sub("outcome"); len(o) > 0 {
		r.Outcome = &combat.Outcome{
			State:        parseState(o.str("state")),
			WavesCleared: o.num("waves_cleared"),
			Gold:         o.num("gold"),
			XP:           o.num("xp"),
			Drops:        o.strs("drops"),
			LevelsGained: o.num("levels_gained"),
			Persisted:    o.boolean("persisted"),
		}
	}
	return r
}

var stateNames = func() map[string]combat.State {
	m := make(map[string]combat.State)
	for s := combat.StateAwaitingAction; s <= combat.StateAbandoned; s++ {
		m[s.String()] = s
	}
	return m
}()

func parseState(name string) combat.State {
	return stateNames[name]
}

// actionFromFields reads the "kind" and "ref" keys of a SubmitAction request.
func actionFromFields(f fields) (combat.Action, error) {
	kind, err := combat.ParseActionKind(f.str("kind"))
	if err != nil {
		return combat.Action{}, err
	}
	return combat.Action{Kind: kind, Ref: f.str("ref")}, nil
}

// ActionRequest encodes a SubmitAction request.
func ActionRequest(handle, actorID string, a combat.Action) *structpb.Struct {
	s, _ := structpb.NewStruct(map[string]any{
		"handle":   handle,
		"actor_id": actorID,
		"kind":     a.Kind.String(),
		"ref":      a.Ref,
	})
	return s
}

// Request encodes a flat string-keyed request such as {"player_id": "p1"}.
func Request(kv map[string]string) *structpb.Struct {
	m := make(map[string]any, len(kv))
	for k, v := range maps.All(kv) {
		m[k] = v
	}
	s, _ := structpb.NewStruct(m)
	return s
}
