package service

import "errors"

var (
	// ErrMissingIdentity is returned when a lifecycle hook fires for a record
	// whose persistence identity is not initialized. Skipping such a record
	// would orphan its edges, so the operation fails instead.
	ErrMissingIdentity = errors.New("record has no initialized identity")
	// ErrMissingCanonicalURL is returned when an updated record's type does
	// not expose a canonical URL, which propagation needs as the reference
	// target string.
	ErrMissingCanonicalURL = errors.New("record type exposes no canonical url")
	// ErrAmbiguousTarget is returned when a content-change call names neither
	// a reference URL nor a target identity.
	ErrAmbiguousTarget = errors.New("neither reference url nor target identity given")
	// ErrIndexingFailure wraps a search backend failure during bulk reindex.
	// Edge-store state is correct regardless; the batch can be retried whole.
	ErrIndexingFailure = errors.New("bulk reindex failed")
)
