package dice

import (
	"sync"

	"go.uber.org/zap"
)

// Roller rolls catalog dice expressions against a Source and records every
// roll at debug level. Parsed expressions are cached; consumable and script
// expressions repeat for the life of the process.
type Roller struct {
	src    Source
	logger *zap.Logger

	mu     sync.RWMutex
	parsed map[string]Expression
}

// NewLoggedRoller creates a Roller.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger, parsed: make(map[string]Expression)}
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source { return r.src }

// RollFor rolls expr on behalf of purpose (an item or script id), which is
// carried into the log line.
//
// Postcondition: Returns a RollResult or a parse error; nothing is logged on error.
func (r *Roller) RollFor(purpose, expr string) (RollResult, error) {
	e, err := r.expression(expr)
	if err != nil {
		return RollResult{}, err
	}
	res := Roll(e, r.src)
	r.logger.Debug("dice roll",
		zap.String("for", purpose),
		zap.String("expression", res.Expression),
		zap.Ints("dice", res.Dice),
		zap.Int("total", res.Total()),
	)
	return res, nil
}

func (r *Roller) expression(raw string) (Expression, error) {
	r.mu.RLock()
	e, ok := r.parsed[raw]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}
	e, err := Parse(raw)
	if err != nil {
		return Expression{}, err
	}
	r.mu.Lock()
	r.parsed[raw] = e
	r.mu.Unlock()
	return e, nil
}
