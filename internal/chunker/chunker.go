// Package chunker splits document text into overlapping, retrievable segments.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for chunker configuration.
var (
	// ErrInvalidConfig indicates invalid chunking parameters.
	ErrInvalidConfig = errors.New("invalid chunker configuration")
)

// sentence-terminating characters used for boundary detection.
const terminators = ".!?"

// Config holds chunking parameters.
type Config struct {
	// Size is the window length in characters.
	// Default: 500
	Size int

	// Overlap is the number of characters re-included from the previous
	// window. Must be smaller than Size so the scan always advances.
	// Default: 50
	Overlap int

	// MinLength is the floor below which a chunk is discarded, not merged.
	// Default: 50
	MinLength int

	// BoundaryThreshold is the fraction of the window past which a
	// sentence terminator is honored as a cut point. Hand-tuned in the
	// source corpus tooling; kept configurable rather than assumed optimal.
	// Default: 0.7
	BoundaryThreshold float64
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Size == 0 {
		c.Size = 500
	}
	if c.Overlap == 0 {
		c.Overlap = 50
	}
	if c.MinLength == 0 {
		c.MinLength = 50
	}
	if c.BoundaryThreshold == 0 {
		c.BoundaryThreshold = 0.7
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, c.Size)
	}
	if c.Overlap < 0 || c.Overlap >= c.Size {
		return fmt.Errorf("%w: overlap must satisfy 0 <= overlap < size, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.BoundaryThreshold < 0 || c.BoundaryThreshold > 1 {
		return fmt.Errorf("%w: boundary threshold must be in [0, 1], got %v", ErrInvalidConfig, c.BoundaryThreshold)
	}
	return nil
}

// Chunk is one retrievable segment of a document.
type Chunk struct {
	// Text is the trimmed segment content.
	Text string

	// Index is the 0-based position of this chunk within the document.
	Index int

	// Total is the chunk count for the document.
	Total int
}

// Chunker splits text into overlapping, boundary-respecting chunks.
type Chunker struct {
	config Config
}

// New creates a Chunker with the given configuration.
func New(config Config) (*Chunker, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Config returns the effective configuration after defaults.
func (c *Chunker) Config() Config {
	return c.config
}

// Chunk splits text into chunks.
//
// The scan walks text left to right in windows of Size characters. A
// window that does not reach the end of the text is truncated at its last
// sentence terminator, but only when that terminator lies beyond
// BoundaryThreshold of the window; otherwise the hard cut at Size stands.
// The window start always advances by Size-Overlap from the untruncated
// window end, so the overlap region is re-included in the next window and
// forward progress is guaranteed.
//
// Chunks at or below MinLength after trimming are dropped. Output order
// equals document order, recorded in each chunk's Index field.
func (c *Chunker) Chunk(text string) []Chunk {
	var texts []string

	start := 0
	for start < len(text) {
		end := start + c.config.Size
		if end > len(text) {
			end = len(text)
		}
		window := text[start:end]

		// Truncate at a sentence boundary only when the window was cut
		// short of the end of the text.
		if start+c.config.Size < len(text) {
			if cut := strings.LastIndexAny(window, terminators); cut >= 0 &&
				float64(cut) > float64(c.config.Size)*c.config.BoundaryThreshold {
				window = window[:cut+1]
			}
		}

		texts = append(texts, strings.TrimSpace(window))

		// Advance from the untruncated window end, not the cut point.
		start += c.config.Size - c.config.Overlap
	}

	kept := make([]string, 0, len(texts))
	for _, t := range texts {
		if len(t) > c.config.MinLength {
			kept = append(kept, t)
		}
	}

	chunks := make([]Chunk, len(kept))
	for i, t := range kept {
		chunks[i] = Chunk{Text: t, Index: i, Total: len(kept)}
	}
	return chunks
}
