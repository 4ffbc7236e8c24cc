package combat

// State is a combat session's position in its turn cycle.
type State int

const (
	StateAwaitingAction State = iota
	StateResolving
	StateWaveCleared
	StateEnemyTurn
	StateVictory
	StateDefeat
	// StateAbandoned marks a session discarded by the idle timeout.
	StateAbandoned
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAwaitingAction:
		return "awaiting_action"
	case StateResolving:
		return "resolving"
	case StateWaveCleared:
		return "wave_cleared"
	case StateEnemyTurn:
		return "enemy_turn"
	case StateVictory:
		return "victory"
	case StateDefeat:
		return "defeat"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further actions are accepted in s.
func (s State) Terminal() bool {
	return s == StateVictory || s == StateDefeat || s == StateAbandoned
}

// Log is a bounded list of recent combat lines; the oldest line is dropped first.
type Log struct {
	lines []string
	limit int
}

// NewLog creates a Log holding at most limit lines.
//
// Precondition: limit >= 1.
func NewLog(limit int) *Log {
	return &Log{limit: limit}
}

// Add appends line, evicting the oldest when full.
func (l *Log) Add(line string) {
	l.lines = append(l.lines, line)
	if over := len(l.lines) - l.limit; over > 0 {
		l.lines = append(l.lines[:0:0], l.lines[over:]...)
	}
}

// Lines returns a copy of the current lines, oldest first.
func (l *Log) Lines() []string {
	out := make([]string, len(l.lines))
	copy(out, l.lines)
	return out
}
