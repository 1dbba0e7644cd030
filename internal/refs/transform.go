package refs

// WrapKey is the key under which a top-level sequence is wrapped before the
// transform runs, so the transform always ends on a map node.
const WrapKey = "_"

// TransformFunc receives a map node and returns the node to substitute in its
// place. Returning the input unchanged is the identity.
type TransformFunc func(node map[string]any) map[string]any

// TransformNested applies fn to every map node in data bottom-up: children
// are transformed before their parents, through any depth of nested maps and
// sequences. A top-level sequence is wrapped as {WrapKey: seq} and the
// wrapper itself is transformed last. Scalars pass through untouched.
func TransformNested(data any, fn TransformFunc) any {
	switch node := data.(type) {
	case map[string]any:
		return fn(transformChildren(node, fn))
	case []any:
		wrapped := map[string]any{WrapKey: transformSlice(node, fn)}
		return fn(wrapped)
	default:
		return data
	}
}

func transformChildren(node map[string]any, fn TransformFunc) map[string]any {
	out := make(map[string]any, len(node))
	for k, v := range node {
		switch child := v.(type) {
		case map[string]any:
			out[k] = fn(transformChildren(child, fn))
		case []any:
			out[k] = transformSlice(child, fn)
		default:
			out[k] = v
		}
	}
	return out
}

func transformSlice(seq []any, fn TransformFunc) []any {
	out := make([]any, len(seq))
	for i, v := range seq {
		switch child := v.(type) {
		case map[string]any:
			out[i] = fn(transformChildren(child, fn))
		case []any:
			out[i] = transformSlice(child, fn)
		default:
			out[i] = v
		}
	}
	return out
}
