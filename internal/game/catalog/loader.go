package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed content/*.yaml
var embedded embed.FS

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the catalog built from the embedded content files.
//
// Postcondition: Returns the same *Catalog on every call. Panics if the embedded
// content is invalid, which the package tests rule out.
func Default() *Catalog {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "content")
		if err != nil {
			defaultErr = err
			return
		}
		defaultCat, defaultErr = LoadFS(sub)
	})
	if defaultErr != nil {
		panic("catalog: embedded content invalid: " + defaultErr.Error())
	}
	return defaultCat
}

// rawSkill is the content-file shape of a skill before its effect is typed.
type rawSkill struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Cost        int        `yaml:"cost"`
	Kind        EffectKind `yaml:"kind"`
	Value       float64    `yaml:"value"`
	Flat        int        `yaml:"flat"`
	Description string     `yaml:"description"`
}

// document is one content file; any section may be absent. Rules stays a raw
// node so each file overlays only the keys it sets.
type document struct {
	Rules       yaml.Node     `yaml:"rules"`
	Classes     []*Class      `yaml:"classes"`
	Skills      []rawSkill    `yaml:"skills"`
	Locations   []*Location   `yaml:"locations"`
	Weapons     []*Weapon     `yaml:"weapons"`
	Armor       []*Armor      `yaml:"armor"`
	Mounts      []*Mount      `yaml:"mounts"`
	Consumables []*Consumable `yaml:"consumables"`
}

// LoadDir reads every *.yaml file in dir and builds a validated Catalog.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a validated Catalog or the first load/validation error.
func LoadDir(dir string) (*Catalog, error) {
	c, err := LoadFS(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("loading catalog dir %q: %w", dir, err)
	}
	return c, nil
}

// LoadFS reads every top-level *.yaml file in fsys in lexicographic order.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	docs := make([][]byte, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Clean(name))
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", name, err)
		}
		docs = append(docs, data)
	}
	return LoadBytes(docs...)
}

// LoadBytes builds a Catalog from raw YAML documents. Sections from later documents
// are appended to earlier ones; rules sections overlay DefaultRules in order.
//
// Postcondition: Returns a validated Catalog or a descriptive error.
func LoadBytes(docs ...[]byte) (*Catalog, error) {
	c := &Catalog{
		rules:       DefaultRules(),
		classes:     make(map[string]*Class),
		skills:      make(map[string]*Skill),
		locations:   make(map[string]*Location),
		weapons:     make(map[string]*Weapon),
		armor:       make(map[string]*Armor),
		mounts:      make(map[string]*Mount),
		consumables: make(map[string]*Consumable),
	}

	for i, data := range docs {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		var doc document
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing content document %d: %w", i, err)
		}
		if err := c.merge(doc); err != nil {
			return nil, fmt.Errorf("content document %d: %w", i, err)
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// overlayRules decodes n over r. Node.Decode ignores unknown keys, so the node
// is re-read through a strict decoder.
func overlayRules(n *yaml.Node, r *Rules) error {
	raw, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(r)
}

func (c *Catalog) merge(doc document) error {
	if doc.Rules.Kind != 0 {
		if err := overlayRules(&doc.Rules, &c.rules); err != nil {
			return fmt.Errorf("decoding rules: %w", err)
		}
	}
	for _, cls := range doc.Classes {
		if err := putUnique(c.classes, "class", cls.ID, cls); err != nil {
			return err
		}
		c.classOrder = append(c.classOrder, cls.ID)
	}
	for _, rs := range doc.Skills {
		eff, err := newEffect(rs.Kind, rs.Value, rs.Flat)
		if err != nil {
			return fmt.Errorf("skill %q: %w", rs.ID, err)
		}
		if rs.Cost < 0 {
			return fmt.Errorf("skill %q: cost must be >= 0, got %d", rs.ID, rs.Cost)
		}
		sk := &Skill{ID: rs.ID, Name: rs.Name, Cost: rs.Cost, Effect: eff, Description: rs.Description}
		if err := putUnique(c.skills, "skill", rs.ID, sk); err != nil {
			return err
		}
	}
	for _, loc := range doc.Locations {
		if err := putUnique(c.locations, "location", loc.ID, loc); err != nil {
			return err
		}
		c.locationOrder = append(c.locationOrder, loc.ID)
	}
	for _, w := range doc.Weapons {
		if err := putUnique(c.weapons, "weapon", w.ID, w); err != nil {
			return err
		}
	}
	for _, a := range doc.Armor {
		if err := putUnique(c.armor, "armor", a.ID, a); err != nil {
			return err
		}
	}
	for _, m := range doc.Mounts {
		if err := putUnique(c.mounts, "mount", m.ID, m); err != nil {
			return err
		}
	}
	for _, cn := range doc.Consumables {
		if err := putUnique(c.consumables, "consumable", cn.ID, cn); err != nil {
			return err
		}
	}
	return nil
}

func putUnique[T any](m map[string]*T, kind, id string, v *T) error {
	if id == "" {
		return fmt.Errorf("%s: id must not be empty", kind)
	}
	if _, dup := m[id]; dup {
		return fmt.Errorf("%s %q: duplicate id", kind, id)
	}
	m[id] = v
	return nil
}
