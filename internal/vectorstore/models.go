package vectorstore

import (
	"fmt"

	"github.com/google/uuid"
)

// Payload is the metadata stored alongside each point's vector.
type Payload struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// Title is the source document's title.
	Title string `json:"title"`

	// Source is the publisher of the source document.
	Source string `json:"source"`

	// ScrapedDate is when the source document was acquired.
	ScrapedDate string `json:"scraped_date"`

	// Type categorizes the source document.
	Type string `json:"type"`

	// URL is the source document's unique key.
	URL string `json:"url"`

	// ChunkIndex is the chunk's 0-based position within the document.
	ChunkIndex int `json:"chunk_index"`

	// TotalChunks is the document's chunk count.
	TotalChunks int `json:"total_chunks"`

	// OriginKey is the pre-hash identity string ("{url}#{index}"),
	// kept for reference and debugging.
	OriginKey string `json:"origin_key"`
}

// Point is one indexed chunk: identifier, vector, and payload.
type Point struct {
	// ID is a deterministic function of (URL, ChunkIndex); see PointID.
	ID string `json:"id"`

	// Vector is the chunk's embedding.
	Vector []float32 `json:"vector"`

	// Payload carries the chunk's metadata.
	Payload Payload `json:"payload"`
}

// RetrievedContext is a read-only projection of a point returned by
// Search. It exists only for the duration of one query.
type RetrievedContext struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// Source is the publisher.
	Source string `json:"source"`

	// Title is the source document's title.
	Title string `json:"title"`

	// URL is the source document's URL.
	URL string `json:"url"`

	// Score is the cosine similarity to the query vector.
	Score float32 `json:"score"`
}

// OriginKey returns the identity string a point id is derived from.
func OriginKey(url string, chunkIndex int) string {
	return fmt.Sprintf("%s#%d", url, chunkIndex)
}

// PointID derives the stable point id for a chunk of a document.
//
// The id is a version-5 UUID over the URL namespace and "{url}#{index}",
// so re-ingesting an unchanged document with unchanged chunking
// parameters reproduces identical ids and upserts stay idempotent.
func PointID(url string, chunkIndex int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(OriginKey(url, chunkIndex))).String()
}
