// Package vectorstore provides vector storage implementations.
package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("prepd.vectorstore.qdrant")

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT the HTTP REST port).
	// Default: 6334
	Port int

	// APIKey is an optional bearer credential.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Collection is the single collection this store owns.
	// Default: "disaster_prep"
	Collection string

	// MaxRetries is the retry budget for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per retry.
	// Default: 1s
	RetryBackoff time.Duration

	// ConnectTimeout bounds the initial health check.
	// Default: 5s
	ConnectTimeout time.Duration
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.Collection == "" {
		c.Collection = "disaster_prep"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	return nil
}

// isTransientError reports whether a gRPC error should be retried.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// isNotFound reports whether a gRPC error means the collection is missing.
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
type QdrantStore struct {
	client *qdrant.Client
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantStore connects to Qdrant and verifies the service is
// reachable. A failed health check returns ErrConnectionFailed so the
// caller can fall back to local storage.
func NewQdrantStore(ctx context.Context, config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	healthCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()
	if _, err := client.HealthCheck(healthCtx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	logger.Info("connected to Qdrant",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.String("collection", config.Collection))

	return &QdrantStore{client: client, config: config, logger: logger}, nil
}

// Mode reports the active backend.
func (s *QdrantStore) Mode() Mode {
	return ModeRemote
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// retryOperation retries an operation with exponential backoff on
// transient gRPC errors.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !isTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}
		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// qdrantDistance maps the collection metric to the client enum.
func qdrantDistance(metric Distance) qdrant.Distance {
	switch metric {
	case DistanceCosine:
		return qdrant.Distance_Cosine
	default:
		return qdrant.Distance_Cosine
	}
}

// CreateCollection drops any existing collection of the configured name
// and creates a fresh one. This is a destructive, full-replace reset.
func (s *QdrantStore) CreateCollection(ctx context.Context, dim int, metric Distance) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.CreateCollection")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("dim", dim),
	)

	if dim <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}

	exists, err := s.collectionExists(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("checking collection %s: %w", s.config.Collection, err)
	}
	if exists {
		s.logger.Info("deleting existing collection", zap.String("collection", s.config.Collection))
		if err := s.retryOperation(ctx, "delete_collection", func() error {
			return s.client.DeleteCollection(ctx, s.config.Collection)
		}); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.config.Collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrantDistance(metric),
			}),
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", s.config.Collection, err)
	}

	s.logger.Info("collection created",
		zap.String("collection", s.config.Collection),
		zap.Int("dim", dim))

	span.SetStatus(codes.Ok, "success")
	return nil
}

func (s *QdrantStore) collectionExists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		info, err := s.client.GetCollectionInfo(ctx, s.config.Collection)
		if err != nil {
			if isNotFound(err) {
				exists = false
				return nil
			}
			return err
		}
		exists = info != nil
		return nil
	})
	return exists, err
}

// Upsert writes points by id. Errors propagate to the caller; a failed
// write must stop the ingestion run, not be skipped silently.
func (s *QdrantStore) Upsert(ctx context.Context, points []Point) error {
	ctx, span := tracer.Start(ctx, "QdrantStore.Upsert")
	defer span.End()

	span.SetAttributes(
		attribute.Int("point_count", len(points)),
		attribute.String("collection", s.config.Collection),
	)

	if len(points) == 0 {
		return ErrEmptyPoints
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ID),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payloadToQdrant(p.Payload),
		}
	}

	err := s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.config.Collection,
			Points:         qdrantPoints,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isNotFound(err) {
			return fmt.Errorf("%w: collection %s", ErrNotInitialized, s.config.Collection)
		}
		return fmt.Errorf("upserting %d points to %s: %w", len(points), s.config.Collection, err)
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Search returns up to k points ranked by descending cosine similarity.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]RetrievedContext, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Search")
	defer span.End()

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("k", k),
	)

	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}

	var results []*qdrant.ScoredPoint
	err := s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: s.config.Collection,
			Query:          qdrant.NewQuery(vector...),
			Limit:          qdrant.PtrOf(uint64(k)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: collection %s", ErrNotInitialized, s.config.Collection)
		}
		return nil, fmt.Errorf("searching collection %s: %w", s.config.Collection, err)
	}

	contexts := make([]RetrievedContext, len(results))
	for i, point := range results {
		contexts[i] = RetrievedContext{Score: point.Score}
		if point.Payload == nil {
			continue
		}
		if v, ok := point.Payload["content"]; ok {
			contexts[i].Content = v.GetStringValue()
		}
		if v, ok := point.Payload["source"]; ok {
			contexts[i].Source = v.GetStringValue()
		}
		if v, ok := point.Payload["title"]; ok {
			contexts[i].Title = v.GetStringValue()
		}
		if v, ok := point.Payload["url"]; ok {
			contexts[i].URL = v.GetStringValue()
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(contexts)))
	span.SetStatus(codes.Ok, "success")
	return contexts, nil
}

// Count returns the number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "QdrantStore.Count")
	defer span.End()

	var count int
	err := s.retryOperation(ctx, "count", func() error {
		info, err := s.client.GetCollectionInfo(ctx, s.config.Collection)
		if err != nil {
			return err
		}
		if info.PointsCount != nil {
			count = int(*info.PointsCount)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		if isNotFound(err) {
			return 0, fmt.Errorf("%w: collection %s", ErrNotInitialized, s.config.Collection)
		}
		return 0, fmt.Errorf("counting points in %s: %w", s.config.Collection, err)
	}
	return count, nil
}

// Persist is a no-op: remote writes are durable at upsert time.
func (s *QdrantStore) Persist(ctx context.Context) error {
	return nil
}

// payloadToQdrant converts a Payload to the Qdrant value map.
func payloadToQdrant(p Payload) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"content":      {Kind: &qdrant.Value_StringValue{StringValue: p.Content}},
		"title":        {Kind: &qdrant.Value_StringValue{StringValue: p.Title}},
		"source":       {Kind: &qdrant.Value_StringValue{StringValue: p.Source}},
		"scraped_date": {Kind: &qdrant.Value_StringValue{StringValue: p.ScrapedDate}},
		"type":         {Kind: &qdrant.Value_StringValue{StringValue: p.Type}},
		"url":          {Kind: &qdrant.Value_StringValue{StringValue: p.URL}},
		"chunk_index":  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.ChunkIndex)}},
		"total_chunks": {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(p.TotalChunks)}},
		"origin_key":   {Kind: &qdrant.Value_StringValue{StringValue: p.OriginKey}},
	}
}

// Ensure QdrantStore implements Store.
var _ Store = (*QdrantStore)(nil)
