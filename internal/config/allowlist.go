package config

import (
	"sort"
	"strings"
)

// AllowList is the set of chat ids allowed to log expenses.
// An empty list allows everyone.
type AllowList map[string]struct{}

// ParseAllowList splits a comma separated list, trimming entries and dropping empty ones.
func ParseAllowList(raw string) AllowList {
	list := make(AllowList)
	for _, id := range strings.Split(raw, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			list[id] = struct{}{}
		}
	}
	return list
}

// Allows reports whether chatID may use the bot.
func (a AllowList) Allows(chatID string) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[chatID]
	return ok
}

// IDs returns the allowed ids in sorted order.
func (a AllowList) IDs() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
