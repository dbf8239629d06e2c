package text

import (
	"sort"
	"strings"
)

// Rule is one literal substitution, applied left to right without overlap.
type Rule struct {
	From string
	To   string
}

// ReplaceTable converts between tag form and display text. Rules are
// applied longest-source-first so that multi-tag sequences win over their
// prefixes.
type ReplaceTable struct {
	rules []Rule
}

// NewReplaceTable copies rules and orders them longest-source-first. The
// sort is stable so equal-length sources keep their given order.
func NewReplaceTable(rules []Rule) *ReplaceTable {
	dup := make([]Rule, len(rules))
	copy(dup, rules)
	sort.SliceStable(dup, func(i, j int) bool {
		return len(dup[i].From) > len(dup[j].From)
	})
	return &ReplaceTable{rules: dup}
}

// Apply substitutes every rule in order.
func (t *ReplaceTable) Apply(s string) string {
	for _, r := range t.rules {
		if r.From != "" {
			s = strings.ReplaceAll(s, r.From, r.To)
		}
	}
	return s
}

// Reversed returns the table with every rule's source and target swapped,
// reordered longest-source-first. Applying a table and then its reverse
// round-trips any text whose rule targets do not overlap.
func (t *ReplaceTable) Reversed() *ReplaceTable {
	rev := make([]Rule, len(t.rules))
	for i, r := range t.rules {
		rev[i] = Rule{From: r.To, To: r.From}
	}
	return NewReplaceTable(rev)
}

// Len returns the number of rules.
func (t *ReplaceTable) Len() int {
	return len(t.rules)
}
