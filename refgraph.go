// Package refgraph keeps a derived reference graph and denormalized inlined
// copies consistent with their source documents as documents are created,
// updated and deleted.
package refgraph

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emrgen/refgraph/internal/cache"
	"github.com/emrgen/refgraph/internal/index"
	"github.com/emrgen/refgraph/internal/jobs"
	"github.com/emrgen/refgraph/internal/queue"
	"github.com/emrgen/refgraph/internal/resolver"
	"github.com/emrgen/refgraph/internal/service"
	"github.com/emrgen/refgraph/internal/signal"
	"github.com/emrgen/refgraph/internal/store"
)

// Re-exported error conditions.
var (
	ErrMissingIdentity     = service.ErrMissingIdentity
	ErrMissingCanonicalURL = service.ErrMissingCanonicalURL
	ErrAmbiguousTarget     = service.ErrAmbiguousTarget
	ErrIndexingFailure     = service.ErrIndexingFailure
	ErrDuplicateEdge       = store.ErrDuplicateEdge
	ErrConcurrencyConflict = store.ErrConcurrencyConflict
	ErrDocumentNotFound    = store.ErrDocumentNotFound
)

const defaultRoutePattern = "/records/{id}"

// Config wires an Engine. Zero values give a single-process engine with a
// gorm-backed index, inline reindexing and the /records/{id} route.
type Config struct {
	// Origin is this service's scheme://host[:port]. References under any
	// other origin are external.
	Origin string
	// Routes overrides the resolver route table.
	Routes []resolver.Route
	// StrictCreate makes document creation fail on a duplicate edge instead
	// of ignoring it.
	StrictCreate bool
	// Indexer overrides the search index backend.
	Indexer index.Indexer
	// Queue switches update propagation to the deferred at-least-once model.
	Queue queue.ReindexQueue
	// Cache memoizes reference resolution. Defaults to a process-local map;
	// multi-process setups share a redis-backed one.
	Cache cache.KV
}

// resolveTTL bounds how long a stale resolution can outlive its document.
const resolveTTL = time.Minute

// Engine is the reference graph consistency engine facade.
type Engine struct {
	db      *gorm.DB
	store   store.Store
	signals *signal.Registry
	service *service.ReferenceService
	cache   cache.KV
	origin  string
	routes  []resolver.Route
}

func New(db *gorm.DB, cnf Config) *Engine {
	if cnf.Origin == "" {
		cnf.Origin = "http://localhost"
	}
	if len(cnf.Routes) == 0 {
		cnf.Routes = []resolver.Route{{Pattern: defaultRoutePattern, Class: "record"}}
	}
	if cnf.Indexer == nil {
		cnf.Indexer = index.NewGormIndexer(db)
	}
	if cnf.Cache == nil {
		cnf.Cache = cache.NewMemory()
	}

	st := store.NewGormStore(db)
	signals := signal.NewRegistry()

	lookup := func(ctx context.Context, class, id string) (uuid.UUID, bool) {
		parsed, err := uuid.Parse(id)
		if err != nil {
			return uuid.Nil, false
		}
		if _, err := st.GetDocument(ctx, parsed); err != nil {
			return uuid.Nil, false
		}
		return parsed, true
	}
	res := resolver.New(resolver.Config{Origin: cnf.Origin, Routes: cnf.Routes}, cachedLookup(cnf.Cache, lookup))

	svc := service.NewReferenceService(st, res, cnf.Indexer, signals)
	svc.SetStrictCreate(cnf.StrictCreate)

	engine := &Engine{
		db:      db,
		store:   st,
		signals: signals,
		service: svc,
		cache:   cnf.Cache,
		origin:  cnf.Origin,
		routes:  cnf.Routes,
	}
	svc.SetRecordSource(engine)
	if cnf.Queue != nil {
		svc.SetScheduler(jobs.NewQueueScheduler(cnf.Queue))
	}

	return engine
}

// cachedLookup memoizes successful resolutions. Misses always go to the
// store so a freshly created document becomes resolvable immediately.
func cachedLookup(kv cache.KV, next resolver.Lookup) resolver.Lookup {
	return func(ctx context.Context, class, id string) (uuid.UUID, bool) {
		key := cache.ResolveKey(class + ":" + id)
		if v, ok, err := kv.Get(ctx, key); err == nil && ok {
			if parsed, err := uuid.Parse(v); err == nil {
				return parsed, true
			}
		}

		parsed, ok := next(ctx, class, id)
		if ok {
			_ = kv.Set(ctx, key, parsed.String(), resolveTTL)
		}
		return parsed, ok
	}
}

// Migrate applies the engine schema. Migrations are additive only.
func (e *Engine) Migrate() error {
	return e.store.Migrate()
}

// Subscribe registers an extension-point listener. A listener returning true
// claims the reindexing work for that update.
func (e *Engine) Subscribe(l signal.Listener) {
	e.signals.Subscribe(l)
}

// Service exposes the lifecycle and propagation operations for callers that
// bring their own record implementation.
func (e *Engine) Service() *service.ReferenceService {
	return e.service
}

// canonicalURL formats the stable URI of a local document identity.
func (e *Engine) canonicalURL(id uuid.UUID) string {
	return e.origin + strings.Replace(defaultRoutePattern, "{id}", id.String(), 1)
}

// GetRecord implements service.RecordSource over the engine's own documents.
func (e *Engine) GetRecord(ctx context.Context, id uuid.UUID) (service.Record, error) {
	return e.GetDocument(ctx, id)
}

// GetDependents returns the identities of every document holding an edge to
// reference, by prefix unless exact. The empty prefix matches all edges.
func (e *Engine) GetDependents(ctx context.Context, reference string, exact bool) ([]uuid.UUID, error) {
	return e.service.GetDependents(ctx, reference, exact)
}

// ReindexDependents runs the propagation coordinator for a changed
// reference.
func (e *Engine) ReindexDependents(ctx context.Context, reference string, changed any) error {
	return e.service.ReindexDependents(ctx, reference, changed)
}

// ReferenceContentChanged refreshes inlined copies of doc in all documents
// referencing it and returns the updated identities.
func (e *Engine) ReferenceContentChanged(ctx context.Context, doc *Document) ([]uuid.UUID, error) {
	id := doc.Identity()
	if id == uuid.Nil {
		return nil, ErrMissingIdentity
	}
	return e.service.ReferenceContentChanged(ctx, doc, e.canonicalURL(id), &id)
}

// RenameReference rewrites the pointer fields of every document referencing
// from and returns the updated identities.
func (e *Engine) RenameReference(ctx context.Context, from, to string) ([]uuid.UUID, error) {
	return e.service.ReferenceRenamed(ctx, nil, from, to)
}
