// Package corpus loads scraped documents produced by the acquisition tooling.
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Sentinel errors for corpus loading.
var (
	// ErrCorpusNotFound is returned when the corpus file does not exist.
	ErrCorpusNotFound = errors.New("corpus file not found")

	// ErrInvalidDocument indicates a document record failing validation.
	ErrInvalidDocument = errors.New("invalid document")
)

// Document is one scraped record from a trusted publisher.
//
// Documents are immutable once produced by the scraper; the pipeline
// treats them as read-only input and regenerates all derived data
// (chunks, points) on every run.
type Document struct {
	// URL is the unique key for the document.
	URL string `json:"url"`

	// Title is the page title.
	Title string `json:"title"`

	// Content is the extracted text body.
	Content string `json:"content"`

	// Source is the publisher (FEMA, Ready.gov, CDC, NOAA, Red Cross, WHO, UNDRR).
	Source string `json:"source"`

	// ScrapedDate is when the document was acquired.
	ScrapedDate string `json:"scraped_date"`

	// Type categorizes the document (e.g. "guide", "webpage").
	Type string `json:"type"`
}

// Validate checks the fields the pipeline depends on.
func (d Document) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidDocument)
	}
	if d.Content == "" {
		return fmt.Errorf("%w: content is required for %s", ErrInvalidDocument, d.URL)
	}
	return nil
}

// Load reads a JSON array of documents from path.
//
// Records are parsed but not validated here; per-document validation
// happens during ingestion so one bad record skips that document rather
// than failing the whole corpus.
func Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrCorpusNotFound, path)
		}
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}

	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	return docs, nil
}
