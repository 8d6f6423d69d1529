package stringset

import (
	"strings"
	"sync"
)

// StringFilter is a concurrency-safe, case-insensitive set used to
// suppress duplicate values across producers.
type StringFilter struct {
	filter sync.Map
}

func NewStringFilter() *StringFilter {
	return &StringFilter{}
}

// Duplicate reports whether s was seen before, recording it either way.
func (sf *StringFilter) Duplicate(s string) bool {
	_, found := sf.filter.LoadOrStore(strings.ToLower(s), struct{}{})
	return found
}
