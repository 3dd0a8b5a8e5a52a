package elementary

import (
	"strconv"

	"wolfram-tiles/internal/core"
)

// Config holds parameters for the reference automaton.
type Config struct {
	Rule       int
	SeedColumn int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Rule: core.DefaultRule}
}

// FromMap populates a Config from a string map.
func FromMap(cfg map[string]string) Config {
	c := DefaultConfig()
	if cfg == nil {
		return c
	}
	if v, ok := cfg["rule"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= core.MinRule && parsed <= core.MaxRule {
			c.Rule = parsed
		}
	}
	if v, ok := cfg["seed_column"]; ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.SeedColumn = parsed
		}
	}
	return c
}

// Elementary evolves a single row over an unbounded line. Cells outside the
// stored span all share the background state, which itself evolves under the
// rule, so the stored span only needs to grow by one cell per side per
// generation to stay exact.
type Elementary struct {
	lookup     *core.RuleLookup
	seed       int
	origin     int
	cells      []bool
	tmp        []bool
	background bool
	generation int
}

// New creates a reference automaton from cfg using rules for the lookup.
func New(rules *core.RuleTable, cfg Config) (*Elementary, error) {
	lookup, err := rules.Lookup(cfg.Rule)
	if err != nil {
		return nil, err
	}
	e := &Elementary{lookup: lookup, seed: cfg.SeedColumn}
	e.Reset()
	return e, nil
}

// Name returns the simulation identifier.
func (e *Elementary) Name() string { return "elementary" }

// Rule returns the rule number being simulated.
func (e *Elementary) Rule() int { return e.lookup.Rule }

// Generation returns the index of the current row.
func (e *Elementary) Generation() int { return e.generation }

// Reset returns to generation 0: every cell off except the seed column.
func (e *Elementary) Reset() {
	e.origin = e.seed
	e.cells = []bool{true}
	e.tmp = e.tmp[:0]
	e.background = false
	e.generation = 0
}

// Cell returns the state of a column in the current generation.
func (e *Elementary) Cell(col int) bool {
	idx := col - e.origin
	if idx < 0 || idx >= len(e.cells) {
		return e.background
	}
	return e.cells[idx]
}

// Row copies n cells starting at column from into a new slice.
func (e *Elementary) Row(from, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = e.Cell(from + i)
	}
	return out
}

// Step computes the next generation, widening the stored span by one cell on
// each side.
func (e *Elementary) Step() {
	w := len(e.cells) + 2
	if cap(e.tmp) < w {
		e.tmp = make([]bool, w)
	}
	e.tmp = e.tmp[:w]
	for i := 0; i < w; i++ {
		col := e.origin - 1 + i
		e.tmp[i] = e.lookup.Next(e.Cell(col-1), e.Cell(col), e.Cell(col+1))
	}
	e.background = e.lookup.Next(e.background, e.background, e.background)
	e.origin--
	e.cells, e.tmp = e.tmp, e.cells
	e.generation++
}

// StepTo advances until the current generation equals g. Earlier generations
// require a Reset first and are ignored.
func (e *Elementary) StepTo(g int) {
	for e.generation < g {
		e.Step()
	}
}
