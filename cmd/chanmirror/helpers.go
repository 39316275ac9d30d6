package main

import (
	"sort"

	"chanmirror/internal/filters"
)

func sortedKeys(m map[string][]filters.Filter) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
