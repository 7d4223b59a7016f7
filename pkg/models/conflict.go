package models

import (
	"sort"
	"strings"
)

// ConflictMap groups variants by conflict key.
// Only keys with at least two variants are kept and each list is ordered
// by ascending source priority.
type ConflictMap map[string][]*Variant

// WinnerMap holds at most one chosen variant per conflict key.
// Every value must be a pointer taken from the matching ConflictMap list.
type WinnerMap map[string]*Variant

// Keys returns the conflict keys in sorted order
func (c ConflictMap) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Variants returns every variant of every conflict, key order first
func (c ConflictMap) Variants() []*Variant {
	var all []*Variant
	for _, k := range c.Keys() {
		all = append(all, c[k]...)
	}
	return all
}

// SourceNames returns the distinct source names involved in conflicts,
// sorted case-insensitively
func (c ConflictMap) SourceNames() []string {
	seen := make(map[string]string)
	for _, list := range c {
		for _, v := range list {
			name := v.SourceName()
			if _, ok := seen[strings.ToLower(name)]; !ok {
				seen[strings.ToLower(name)] = name
			}
		}
	}

	names := make([]string, 0, len(seen))
	for _, n := range seen {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})
	return names
}

// SortByPriority orders every list by ascending source priority.
// The sort is stable so equal priorities keep scan order.
func (c ConflictMap) SortByPriority() {
	for _, list := range c {
		SortVariants(list)
	}
}

// Contains reports whether v is one of the variants listed for key
func (c ConflictMap) Contains(key string, v *Variant) bool {
	for _, candidate := range c[key] {
		if candidate == v {
			return true
		}
	}
	return false
}

// SortVariants stably orders variants by ascending source priority
func SortVariants(list []*Variant) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Priority() < list[j].Priority()
	})
}

// Clear removes every winner
func (w WinnerMap) Clear() {
	for k := range w {
		delete(w, k)
	}
}

// Keys returns the winner keys in sorted order
func (w WinnerMap) Keys() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
