package activity

import (
	"time"

	"github.com/matthewbaird/partmanager/internal/types"
)

// CategorySummary counts one category's entries within a window.
type CategorySummary struct {
	Category    string         `json:"category"`
	Count       int            `json:"count"`
	ByEventType map[string]int `json:"by_event_type"`
	Trend       string         `json:"trend"` // "rising", "falling", "stable"
	Latest      time.Time      `json:"latest"`
}

// Summary is the roll-up of an entity's activity over a window.
type Summary struct {
	EntityType string                     `json:"entity_type"`
	EntityID   string                     `json:"entity_id"`
	Since      time.Time                  `json:"since"`
	Until      time.Time                  `json:"until"`
	Total      int                        `json:"total"`
	Categories map[string]CategorySummary `json:"categories"`
}

// Summarize groups entries by category. Entries outside [since, until]
// are ignored.
func Summarize(entries []types.ActivityEntry, entityType, entityID string, since, until time.Time) Summary {
	categories := make(map[string]*CategorySummary)
	var inWindow []types.ActivityEntry
	for _, e := range entries {
		if e.OccurredAt.Before(since) || e.OccurredAt.After(until) {
			continue
		}
		inWindow = append(inWindow, e)
		cs, ok := categories[e.Category]
		if !ok {
			cs = &CategorySummary{Category: e.Category, ByEventType: make(map[string]int)}
			categories[e.Category] = cs
		}
		cs.Count++
		cs.ByEventType[e.EventType]++
		if e.OccurredAt.After(cs.Latest) {
			cs.Latest = e.OccurredAt
		}
	}

	out := Summary{
		EntityType: entityType,
		EntityID:   entityID,
		Since:      since,
		Until:      until,
		Total:      len(inWindow),
		Categories: make(map[string]CategorySummary, len(categories)),
	}
	for cat, cs := range categories {
		cs.Trend = trend(inWindow, cat, since, until)
		out.Categories[cat] = *cs
	}
	return out
}

// trend compares volume in the first and second half of the window.
func trend(entries []types.ActivityEntry, category string, since, until time.Time) string {
	mid := since.Add(until.Sub(since) / 2)
	var firstHalf, secondHalf int
	for _, e := range entries {
		if e.Category != category {
			continue
		}
		if e.OccurredAt.Before(mid) {
			firstHalf++
		} else {
			secondHalf++
		}
	}
	if secondHalf > firstHalf+1 {
		return "rising"
	}
	if firstHalf > secondHalf+1 {
		return "falling"
	}
	return "stable"
}
