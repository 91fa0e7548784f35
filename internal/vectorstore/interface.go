// Package vectorstore defines the interface for vector storage operations.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrNotInitialized is returned when an operation runs before the
	// collection exists (remote) or the buffer was initialized (local).
	ErrNotInitialized = errors.New("collection not initialized")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyPoints indicates an upsert with no points.
	ErrEmptyPoints = errors.New("empty or nil points")

	// ErrConnectionFailed indicates the remote store is unreachable.
	ErrConnectionFailed = errors.New("failed to connect to vector store")
)

// Mode identifies which backend a Store runs against. The mode is chosen
// once at connect time and never re-evaluated mid-run.
type Mode string

const (
	// ModeRemote means operations run against the remote Qdrant service.
	ModeRemote Mode = "remote"

	// ModeLocalFallback means operations run against the in-memory
	// buffer persisted to a local JSON file.
	ModeLocalFallback Mode = "local-fallback"
)

// Distance is the similarity metric for a collection.
type Distance string

// DistanceCosine is the only metric this system uses.
const DistanceCosine Distance = "cosine"

// Store owns one named collection of points.
//
// The remote/local duality is expressed as two implementations behind
// this interface rather than a backend flag checked at every call site;
// the factory in Connect picks one for the lifetime of the process.
type Store interface {
	// CreateCollection destructively resets the store's collection with
	// the given vector dimension and metric. Any prior points are
	// discarded; callers invoke this once per full ingestion run, never
	// per document, and must not upsert concurrently with it.
	CreateCollection(ctx context.Context, dim int, metric Distance) error

	// Upsert writes points by id, overwriting existing points with the
	// same id (last write wins, not append). Remote write errors are
	// propagated; ingestion must stop and report rather than skip.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to k points ranked by descending cosine
	// similarity to vector. Ties are broken by stable insertion order.
	Search(ctx context.Context, vector []float32, k int) ([]RetrievedContext, error)

	// Count returns the number of points in the collection.
	Count(ctx context.Context) (int, error)

	// Persist flushes buffered points to durable storage. Only the
	// local fallback buffers; on the remote backend this is a no-op.
	Persist(ctx context.Context) error

	// Mode reports which backend is active.
	Mode() Mode

	// Close releases the underlying connection or buffer.
	Close() error
}
