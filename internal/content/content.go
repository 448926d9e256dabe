// Package content serves the week-indexed static table used to compose
// baby messages and development digests. Pure lookup, no mutation.
package content

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
)

//go:embed weeks.json
var weeksFS embed.FS

// WeekEntry is one row of the static table. The table is sparse: lookups
// resolve to the nearest entry at or below the requested week.
type WeekEntry struct {
	Week        int      `json:"week"`
	Size        string   `json:"size"`
	Development string   `json:"development"`
	Milestone   string   `json:"milestone"`
	Tip         string   `json:"tip"`
	Messages    []string `json:"messages"`
}

// Table is a loaded, immutable week table.
type Table struct {
	entries []WeekEntry // sorted by Week ascending
}

// Load parses the embedded table.
func Load() (*Table, error) {
	raw, err := weeksFS.ReadFile("weeks.json")
	if err != nil {
		return nil, err
	}
	var entries []WeekEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse weeks table: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("weeks table is empty")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Week < entries[j].Week })
	return &Table{entries: entries}, nil
}

// ForWeek returns the entry covering the given pregnancy week: the entry
// with the largest Week <= week, or the first entry for very early weeks.
func (t *Table) ForWeek(week int) WeekEntry {
	best := t.entries[0]
	for _, e := range t.entries {
		if e.Week > week {
			break
		}
		best = e
	}
	return best
}

// Message picks a baby message for the week. seed makes selection
// deterministic for a given (week, seed) pair, so tests and retries
// within a slot don't flap.
func (t *Table) Message(week int, seed int64) string {
	e := t.ForWeek(week)
	if len(e.Messages) == 0 {
		return "Thinking of you today!"
	}
	i := int(seed % int64(len(e.Messages)))
	if i < 0 {
		i = -i
	}
	return e.Messages[i]
}
