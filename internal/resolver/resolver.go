// Package resolver maps reference URIs to local document identities.
package resolver

import (
	"context"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Lookup dereferences a route match to an existing document identity. It
// returns false when no such document exists.
type Lookup func(ctx context.Context, class, id string) (uuid.UUID, bool)

// Route is one registered URL pattern, e.g. "/records/{id}". Class names the
// document type the route serves. A route without an {id} segment can never
// resolve.
type Route struct {
	Pattern string
	Class   string
}

// Config is the explicit resolver configuration: the service origin
// (scheme://host[:port]) and the route table. No ambient application state
// is consulted.
type Config struct {
	Origin string
	Routes []Route
}

// Resolver decides whether a URI denotes a document managed by this service.
type Resolver struct {
	origin *url.URL
	routes []Route
	lookup Lookup
}

func New(cnf Config, lookup Lookup) *Resolver {
	origin, err := url.Parse(cnf.Origin)
	if err != nil {
		origin = nil
	}
	return &Resolver{origin: origin, routes: cnf.Routes, lookup: lookup}
}

// Resolve returns the local identity behind uri, or nil when the URI is
// foreign, malformed, unrouted or does not dereference to an existing
// document. It never returns an error: every failure mode means "not ours".
func (r *Resolver) Resolve(ctx context.Context, uri string) *uuid.UUID {
	if r.origin == nil {
		return nil
	}

	parsed, err := url.Parse(uri)
	if err != nil || !parsed.IsAbs() {
		return nil
	}
	if parsed.Scheme != r.origin.Scheme || parsed.Host != r.origin.Host {
		return nil
	}

	for _, route := range r.routes {
		id, ok := matchRoute(route.Pattern, parsed.Path)
		if !ok {
			continue
		}
		found, ok := r.lookup(ctx, route.Class, id)
		if !ok {
			return nil
		}
		return &found
	}

	return nil
}

// matchRoute matches path against a "/seg/{id}/seg" style pattern and
// returns the {id} segment value. Patterns without an {id} segment never
// match: a route that cannot carry an identifier cannot resolve a document.
func matchRoute(pattern, path string) (string, bool) {
	want := strings.Split(strings.Trim(pattern, "/"), "/")
	got := strings.Split(strings.Trim(path, "/"), "/")
	if len(want) != len(got) {
		return "", false
	}

	id := ""
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if seg == "{id}" {
				id = got[i]
			}
			continue
		}
		if seg != got[i] {
			return "", false
		}
	}

	if id == "" {
		return "", false
	}
	return id, true
}
