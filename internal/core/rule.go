package core

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const (
	// MinRule is the lowest elementary rule number.
	MinRule = 0
	// MaxRule is the highest elementary rule number.
	MaxRule = 255
	// DefaultRule is used when no rule has been chosen.
	DefaultRule = 110
)

// ErrInvalidRule is returned when a rule number falls outside [MinRule, MaxRule].
var ErrInvalidRule = errors.New("invalid rule")

// RuleLookup is the 8-entry next-state table of a single rule. Index is
// 4*left + 2*self + right.
type RuleLookup struct {
	Rule  int
	table [8]bool
}

// Next returns the next state of a cell given its neighbourhood.
func (l *RuleLookup) Next(left, self, right bool) bool {
	idx := 0
	if left {
		idx |= 4
	}
	if self {
		idx |= 2
	}
	if right {
		idx |= 1
	}
	return l.table[idx]
}

// String renders the table from 111 down to 000, e.g. "01101110" for rule 110.
func (l *RuleLookup) String() string {
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = '0'
		if l.table[7-i] {
			buf[i] = '1'
		}
	}
	return string(buf)
}

func buildLookup(rule int) *RuleLookup {
	l := &RuleLookup{Rule: rule}
	for i := range l.table {
		l.table[i] = (rule>>i)&1 == 1
	}
	return l
}

// RuleTable memoizes rule lookups for the lifetime of the table. Tables are
// built at most once per rule and published atomically, so concurrent readers
// never observe a partially built lookup.
type RuleTable struct {
	tables [MaxRule + 1]atomic.Pointer[RuleLookup]
	flight singleflight.Group
	built  atomic.Int32
}

// NewRuleTable returns an empty table.
func NewRuleTable() *RuleTable {
	return &RuleTable{}
}

// Lookup returns the memoized lookup for rule, building it on first use.
func (t *RuleTable) Lookup(rule int) (*RuleLookup, error) {
	if rule < MinRule || rule > MaxRule {
		return nil, fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidRule, rule, MinRule, MaxRule)
	}
	if l := t.tables[rule].Load(); l != nil {
		return l, nil
	}
	v, _, _ := t.flight.Do(strconv.Itoa(rule), func() (interface{}, error) {
		if l := t.tables[rule].Load(); l != nil {
			return l, nil
		}
		l := buildLookup(rule)
		t.tables[rule].Store(l)
		t.built.Add(1)
		return l, nil
	})
	return v.(*RuleLookup), nil
}

// Next reports the next state of the cell (left, self, right) under rule.
func (t *RuleTable) Next(rule int, left, self, right bool) (bool, error) {
	l, err := t.Lookup(rule)
	if err != nil {
		return false, err
	}
	return l.Next(left, self, right), nil
}

// Built returns how many rules have been materialised so far.
func (t *RuleTable) Built() int {
	return int(t.built.Load())
}

// ClampRule maps any integer onto the nearest valid rule number. The second
// return value reports whether the input had to be adjusted.
func ClampRule(rule int) (int, bool) {
	switch {
	case rule < MinRule:
		return MinRule, true
	case rule > MaxRule:
		return MaxRule, true
	default:
		return rule, false
	}
}
