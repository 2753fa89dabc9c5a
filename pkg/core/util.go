package core

import (
	"reflect"
	"sort"
)

// copyProps returns a shallow copy of props, or an empty map if props is
// nil — Component.Update stages onto a copy so the previously committed
// map is never mutated in place.
func copyProps(props map[string]any) map[string]any {
	cp := make(map[string]any, len(props))
	for k, v := range props {
		cp[k] = v
	}
	return cp
}

// sortedKeys returns m's keys in ascending order, giving Destroy a
// deterministic per-key cleanup order even though spec.md leaves the
// cross-key order unspecified.
func sortedKeys(m map[string]Cleanup) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SameTuple reports whether a and b are both exactly length n and equal
// element-wise. It resolves spec.md's open question about the source's
// `same.tuple(n)` helper: a fixed target length checked against both
// slices (hence "checks length equality twice"), then shallow element
// equality — reflect.DeepEqual per element so non-comparable payloads
// (slices, maps) don't panic a `==` comparison.
//
// pkg/core has no internal call site for this — the dependency-list-style
// memoization it originally served belongs to a reactive-signal system
// this runtime's diff/update model supersedes (see DESIGN.md). It is
// exported as a small convenience for a Differ or Behavior that wants to
// cheaply compare a derived dependency slice between prev and next props,
// the same role the original helper played.
func SameTuple(n int, a, b []any) bool {
	if len(a) != n || len(b) != n {
		return false
	}
	for i := 0; i < n; i++ {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
