package refs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		data   any
		filter TypeFilter
		want   []any
	}{
		{
			name: "flat marker",
			data: map[string]any{"$ref": "a"},
			want: []any{"a"},
		},
		{
			name: "nested marker",
			data: map[string]any{"c": map[string]any{"$ref": "a"}},
			want: []any{"a"},
		},
		{
			name: "two siblings in key order",
			data: map[string]any{
				"b": map[string]any{"$ref": "c"},
				"c": map[string]any{"$ref": "a"},
			},
			want: []any{"c", "a"},
		},
		{
			name: "marker inside a list element",
			data: map[string]any{
				"b": []any{
					map[string]any{"f": "g"},
					map[string]any{"d": "e", "$ref": "c"},
				},
				"c": map[string]any{"$ref": "a"},
			},
			want: []any{"c", "a"},
		},
		{
			name: "top level list",
			data: []any{
				map[string]any{"$ref": "g"},
				map[string]any{"c": map[string]any{"$ref": "a"}},
			},
			want: []any{"g", "a"},
		},
		{
			name: "list of lists flattened",
			data: map[string]any{
				"outer": []any{
					[]any{map[string]any{"$ref": "x"}},
					map[string]any{"$ref": "y"},
				},
			},
			want: []any{"x", "y"},
		},
		{
			name: "marker beside nested marker",
			data: map[string]any{
				"$ref":   "a",
				"nested": map[string]any{"$ref": "b"},
			},
			want: []any{"a", "b"},
		},
		{
			name: "int filter drops strings",
			data: []any{
				map[string]any{"$ref": 3},
				map[string]any{"c": map[string]any{"$ref": "a"}},
			},
			filter: IntValues,
			want:   []any{3},
		},
		{
			name: "scalar input yields nothing",
			data: "a",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var opts []ExtractOption
			if tt.filter != nil {
				opts = append(opts, WithTypeFilter(tt.filter))
			}
			assert.Equal(t, tt.want, Extract(tt.data, opts...))
		})
	}
}

func TestExtractWithMarker(t *testing.T) {
	data := map[string]any{
		"link": "a",
		"deep": map[string]any{"link": "b"},
	}

	assert.Equal(t, []any{"b"}, Extract(data["deep"], WithMarker("link")))
	assert.Equal(t, []any{"a", "b"}, Extract(data, WithMarker("link")))
}

func TestExtractStrings(t *testing.T) {
	data := map[string]any{
		"a": map[string]any{"$ref": "http://host/records/1"},
		"b": map[string]any{"$ref": "http://host/records/1"},
		"c": map[string]any{"$ref": 3},
	}

	assert.Equal(t, []string{"http://host/records/1"}, ExtractStrings(data))
}
