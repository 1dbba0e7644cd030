package refs

// Reference is one outbound reference found in a document: the target URI
// and whether the target's content was embedded inline rather than stored as
// a bare pointer.
type Reference struct {
	URL    string
	Inline bool
}

// ContentChange carries "the content behind URL changed" context from a
// propagation pass into document revalidation.
type ContentChange struct {
	URL     string
	Content map[string]any
}

// Rename carries "the URI From is now To" context from a propagation pass.
type Rename struct {
	From string
	To   string
}

// ChangeContext is the pending-change payload threaded through a document's
// revalidation. Zero value means no pending change.
type ChangeContext struct {
	ContentChange *ContentChange
	Rename        *Rename
}

// SelfURL reads the node's own URI from its links.self field.
func SelfURL(node map[string]any) (string, bool) {
	links, ok := node["links"].(map[string]any)
	if !ok {
		return "", false
	}
	self, ok := links["self"].(string)
	return self, ok
}

// CollapseSelfLinks rewrites an inlined sub-document that exposes its own
// self URI and a slug discriminator into the bare pointer form
// {Marker: self}. Anything else passes through unchanged. Meant to run via
// TransformNested before the reference set is computed, so inlined copies
// count as references to their source.
func CollapseSelfLinks(node map[string]any) map[string]any {
	self, ok := SelfURL(node)
	if !ok {
		return node
	}
	if _, ok := node["slug"]; !ok {
		return node
	}
	return map[string]any{Marker: self}
}

// ApplyPendingChange applies a ChangeContext to a single node. On a content
// change, a node whose self URI equals the changed URL (a stale inlined
// copy) and a bare pointer {Marker: URL} (the collapsed form) are both
// replaced by the new content; this is the inverse of CollapseSelfLinks. On
// a rename, a bare pointer equal to the old URI is rewritten to the new one.
// All other fields and all other nodes are left untouched.
func ApplyPendingChange(chg ChangeContext, node map[string]any) map[string]any {
	if chg.ContentChange != nil {
		matches := false
		if self, ok := SelfURL(node); ok && self == chg.ContentChange.URL {
			matches = true
		}
		if ref, ok := node[Marker].(string); ok && len(node) == 1 && ref == chg.ContentChange.URL {
			matches = true
		}

		if matches {
			replaced := make(map[string]any, len(chg.ContentChange.Content))
			for k, v := range chg.ContentChange.Content {
				replaced[k] = v
			}
			return replaced
		}
	}

	if chg.Rename != nil {
		if ref, ok := node[Marker].(string); ok && ref == chg.Rename.From {
			out := make(map[string]any, len(node))
			for k, v := range node {
				out[k] = v
			}
			out[Marker] = chg.Rename.To
			return out
		}
	}

	return node
}
