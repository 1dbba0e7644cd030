// Package refs implements reference extraction and structural transforms
// over decoded JSON document trees.
package refs

import "sort"

// Marker is the default key denoting a reference inside a document tree.
const Marker = "$ref"

// TypeFilter restricts extraction to values it accepts. A nil filter accepts
// everything.
type TypeFilter func(v any) bool

// IntValues accepts whole numbers, including whole float64 values produced by
// encoding/json.
func IntValues(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

// StringValues accepts string values.
func StringValues(v any) bool {
	_, ok := v.(string)
	return ok
}

type extractOptions struct {
	marker string
	filter TypeFilter
}

type ExtractOption func(*extractOptions)

func WithMarker(marker string) ExtractOption {
	return func(o *extractOptions) { o.marker = marker }
}

func WithTypeFilter(filter TypeFilter) ExtractOption {
	return func(o *extractOptions) { o.filter = filter }
}

// Extract walks data depth-first and collects the value of every marker key
// found in any map, at any nesting depth, flattening through sequences and
// sequences of sequences. Map keys are visited in sorted order so the result
// order is reproducible; the edge store treats the result as a set.
//
// Document trees are finite and acyclic at the structural level, so the walk
// needs no cycle protection. Cycles between documents exist only through
// reference URIs and never through nesting.
func Extract(data any, opts ...ExtractOption) []any {
	o := extractOptions{marker: Marker}
	for _, opt := range opts {
		opt(&o)
	}

	var found []any
	extract(data, o, &found)
	return found
}

func extract(data any, o extractOptions, found *[]any) {
	switch node := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, k := range keys {
			v := node[k]
			if k == o.marker && (o.filter == nil || o.filter(v)) {
				*found = append(*found, v)
			}
			switch v.(type) {
			case map[string]any, []any:
				extract(v, o, found)
			}
		}
	case []any:
		for _, v := range node {
			extract(v, o, found)
		}
	}
}

// ExtractStrings is Extract restricted to string-valued references, returned
// deduplicated in first-seen order.
func ExtractStrings(data any, opts ...ExtractOption) []string {
	opts = append(opts, WithTypeFilter(StringValues))
	seen := make(map[string]struct{})

	var out []string
	for _, v := range Extract(data, opts...) {
		s := v.(string)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
