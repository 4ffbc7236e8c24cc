// Package tui is the skirmish terminal client: a lobby for choosing where to
// fight and a battle screen that renders the engine's View.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cory-johannsen/samsara/internal/game/catalog"
	"github.com/cory-johannsen/samsara/internal/game/character"
	"github.com/cory-johannsen/samsara/internal/game/combat"
	"github.com/cory-johannsen/samsara/internal/game/gameerr"
)

// Arena is the command boundary the client drives. Both the gRPC client and
// an in-process combat.Engine satisfy it.
type Arena interface {
	GetCharacter(ctx context.Context, playerID string) (*character.Character, error)
	StartEncounter(ctx context.Context, playerID, locationID string) (combat.View, error)
	SubmitAction(ctx context.Context, handle, actorID string, a combat.Action) (combat.Result, error)
	Rest(ctx context.Context, playerID string) (*character.Character, error)
	Rebirth(ctx context.Context, playerID string) (*character.Character, error)
}

// Destination is one location offered in the lobby.
type Destination struct {
	ID   string
	Name string
}

// Destinations lists the catalog's locations in content order.
func Destinations(cat *catalog.Catalog) []Destination {
	ids := cat.LocationIDs()
	out := make([]Destination, 0, len(ids))
	for _, id := range ids {
		name := id
		if loc, ok := cat.Location(id); ok && loc.Name != "" {
			name = loc.Name
		}
		out = append(out, Destination{ID: id, Name: name})
	}
	return out
}

type screen int

const (
	screenLoading screen = iota
	screenLobby
	screenBattle
	screenResult
)

const callTimeout = 10 * time.Second

type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Select  key.Binding
	Rest    key.Binding
	Rebirth key.Binding
	Quit    key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Rest, k.Rebirth, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

var keys = keyMap{
	Up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Select:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "choose")),
	Rest:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rest")),
	Rebirth: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "rebirth")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
}

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			Padding(0, 1)

	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5F5F87")).Bold(true)
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	goldenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)

	hpFill = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7005F"))
	mpFill = lipgloss.NewStyle().Foreground(lipgloss.Color("#5F87FF"))
	emFill = lipgloss.NewStyle().Foreground(lipgloss.Color("#AF8700"))
)

// Model is the bubbletea model for the client.
type Model struct {
	arena    Arena
	playerID string
	places   []Destination

	screen  screen
	player  *character.Character
	view    combat.View
	outcome *combat.Outcome
	cursor  int
	err     error

	width  int
	height int
	log    viewport.Model
	help   help.Model
}

// NewModel creates the client model for playerID.
//
// Precondition: arena must be non-nil; places must be non-empty.
func NewModel(arena Arena, playerID string, places []Destination) Model {
	return Model{
		arena:    arena,
		playerID: playerID,
		places:   places,
		screen:   screenLoading,
		log:      viewport.New(60, 8),
		help:     help.New(),
	}
}

type characterMsg struct{ c *character.Character }

type viewMsg struct{ v combat.View }

type resultMsg struct{ res combat.Result }

type errMsg struct{ err error }

// Init loads the player's record.
func (m Model) Init() tea.Cmd {
	return m.loadCharacter()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width = max(msg.Width-4, 20)
		m.help.Width = msg.Width
		return m, nil

	case characterMsg:
		m.err = nil
		m.player = msg.c
		if m.screen == screenLoading {
			m.screen = screenLobby
		}
		return m, nil

	case viewMsg:
		m.err = nil
		m.view = msg.v
		m.outcome = nil
		m.screen = screenBattle
		m.cursor = 0
		m.refreshLog()
		return m, nil

	case resultMsg:
		m.err = nil
		m.view = msg.res.View
		m.refreshLog()
		if msg.res.Outcome != nil {
			m.outcome = msg.res.Outcome
			m.screen = screenResult
			return m, m.loadCharacter()
		}
		m.cursor = min(m.cursor, max(len(m.view.Available)-1, 0))
		return m, nil

	case errMsg:
		m.err = msg.err
		if m.screen == screenBattle && errors.Is(msg.err, gameerr.ErrState) {
			// The session is gone, usually to the idle timeout.
			m.screen = screenLobby
			m.cursor = 0
			return m, m.loadCharacter()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, keys.Quit) {
		return m, tea.Quit
	}
	switch m.screen {
	case screenLobby:
		switch {
		case key.Matches(msg, keys.Up):
			m.cursor = max(m.cursor-1, 0)
		case key.Matches(msg, keys.Down):
			m.cursor = min(m.cursor+1, len(m.places)-1)
		case key.Matches(msg, keys.Select):
			return m, m.start(m.places[m.cursor].ID)
		case key.Matches(msg, keys.Rest):
			return m, m.characterCall(m.arena.Rest)
		case key.Matches(msg, keys.Rebirth):
			return m, m.characterCall(m.arena.Rebirth)
		}
	case screenBattle:
		opts := m.view.Available
		switch {
		case key.Matches(msg, keys.Up):
			m.cursor = max(m.cursor-1, 0)
		case key.Matches(msg, keys.Down):
			m.cursor = min(m.cursor+1, len(opts)-1)
		case key.Matches(msg, keys.Select):
			if m.cursor >= len(opts) || !opts[m.cursor].Enabled {
				return m, nil
			}
			return m, m.submit(opts[m.cursor])
		}
	case screenResult:
		if key.Matches(msg, keys.Select) {
			m.screen = screenLobby
			m.cursor = 0
			m.outcome = nil
		}
	}
	return m, nil
}

func (m Model) loadCharacter() tea.Cmd {
	return m.characterCall(m.arena.GetCharacter)
}

func (m Model) characterCall(call func(context.Context, string) (*character.Character, error)) tea.Cmd {
	id := m.playerID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		c, err := call(ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return characterMsg{c}
	}
}

func (m Model) start(locationID string) tea.Cmd {
	arena, id := m.arena, m.playerID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		v, err := arena.StartEncounter(ctx, id, locationID)
		if err != nil {
			return errMsg{err}
		}
		return viewMsg{v}
	}
}

func (m Model) submit(opt combat.ActionOption) tea.Cmd {
	arena, id, handle := m.arena, m.playerID, m.view.Handle
	a := combat.Action{Kind: opt.Kind, Ref: opt.Ref}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		res, err := arena.SubmitAction(ctx, handle, id, a)
		if err != nil {
			return errMsg{err}
		}
		return resultMsg{res}
	}
}

func (m *Model) refreshLog() {
	m.log.SetContent(strings.Join(m.view.Log, "\n"))
	m.log.GotoBottom()
}

// View implements tea.Model.
func (m Model) View() string {
	var body string
	switch m.screen {
	case screenLoading:
		body = "\n  Loading " + m.playerID + "...\n"
	case screenLobby:
		body = m.lobbyView()
	case screenBattle:
		body = m.battleView()
	case screenResult:
		body = m.resultView()
	}
	if m.err != nil {
		body += "\n" + errorStyle.Render("! "+m.err.Error())
	}
	return body + "\n" + m.help.View(keys) + "\n"
}

func (m Model) lobbyView() string {
	var b strings.Builder
	if c := m.player; c != nil {
		b.WriteString(titleStyle.Render(fmt.Sprintf("%s the %s", c.ID, c.ClassID)) + "\n")
		fmt.Fprintf(&b, "Level %d  XP %d  Rebirths %d  Gold %d\n", c.Level, c.XP, c.Rebirths, c.Gold)
		b.WriteString(bar("HP", c.HP, c.MaxHP, hpFill) + "\n")
		b.WriteString(bar("MP", c.MP, c.MaxMP, mpFill) + "\n\n")
	}
	b.WriteString(titleStyle.Render("Where will you fight?") + "\n")
	for i, p := range m.places {
		line := "  " + p.Name
		if i == m.cursor {
			line = cursorStyle.Render("> " + p.Name)
		}
		b.WriteString(line + "\n")
	}
	return panelStyle.Render(b.String())
}

func (m Model) battleView() string {
	v := m.view
	header := titleStyle.Render(fmt.Sprintf("%s  wave %d/%d  turn %d", v.Location, v.Wave, v.MaxWaves, v.Turn))

	enemyName := fmt.Sprintf("%s (lv %d)", v.Enemy.Name, v.Enemy.Level)
	if v.Enemy.Golden {
		enemyName = goldenStyle.Render("★ " + enemyName)
	}
	enemy := enemyName + "\n" + bar("HP", v.Enemy.HP, v.Enemy.MaxHP, emFill)
	if v.Enemy.Telegraph != "" {
		enemy += "\n" + hintStyle.Render("It prepares to "+v.Enemy.Telegraph+".")
	}

	player := fmt.Sprintf("%s (lv %d)", v.Player.ID, v.Player.Level) + "\n" +
		bar("HP", v.Player.HP, v.Player.MaxHP, hpFill) + "\n" +
		bar("MP", v.Player.MP, v.Player.MaxMP, mpFill)
	if len(v.Effects) > 0 {
		player += "\n" + hintStyle.Render(strings.Join(v.Effects, ", "))
	}

	var menu strings.Builder
	for i, o := range v.Available {
		label := o.Label
		switch {
		case i == m.cursor:
			label = cursorStyle.Render("> " + label)
		case !o.Enabled:
			label = disabledStyle.Render("  " + label)
		default:
			label = "  " + label
		}
		menu.WriteString(label + "\n")
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(enemy), panelStyle.Render(player))
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		top,
		panelStyle.Render(m.log.View()),
		panelStyle.Render(menu.String()),
	)
}

func (m Model) resultView() string {
	o := m.outcome
	if o == nil {
		return ""
	}
	title := "Victory!"
	if o.State == combat.StateDefeat {
		title = "Defeated."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n")
	fmt.Fprintf(&b, "Waves cleared: %d\nGold: +%d\nXP: +%d\n", o.WavesCleared, o.Gold, o.XP)
	if o.LevelsGained > 0 {
		fmt.Fprintf(&b, "Level up! (+%d)\n", o.LevelsGained)
	}
	if len(o.Drops) > 0 {
		b.WriteString("Drops: " + strings.Join(o.Drops, ", ") + "\n")
	}
	if !o.Persisted {
		b.WriteString(hintStyle.Render("Progress is queued and will be saved shortly.") + "\n")
	}
	b.WriteString("\n" + hintStyle.Render("Press enter to return to the lobby."))
	return panelStyle.Render(b.String())
}

const barWidth = 20

// bar renders "HP [#####.....] 50/100".
func bar(label string, cur, maxV int, fill lipgloss.Style) string {
	filled := 0
	if maxV > 0 {
		filled = min(barWidth, max(0, cur*barWidth/maxV))
	}
	return fmt.Sprintf("%s [%s%s] %d/%d",
		label,
		fill.Render(strings.Repeat("█", filled)),
		strings.Repeat("·", barWidth-filled),
		cur, maxV,
	)
}

// Run starts the client on the terminal and blocks until the player quits.
func Run(arena Arena, playerID string, places []Destination) error {
	p := tea.NewProgram(NewModel(arena, playerID, places), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
