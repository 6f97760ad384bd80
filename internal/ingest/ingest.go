package ingest

import (
	"context"

	"github.com/joseph-ayodele/ttn-extractor/constants"
)

// Document is one file read from disk, ready for the pipeline.
type Document struct {
	SourcePath string
	DocumentID string // content-derived, stable across runs
	HashHex    string
	FileExt    string
	MediaType  constants.MediaType // declared by the extension
	Size       int64
	Content    []byte
	Err        string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the batch tools depend on.
type Ingestor interface {
	// ReadPath reads a single file.
	ReadPath(ctx context.Context, path string) (Document, error)
	// Collect reads all matching files under root.
	Collect(ctx context.Context, root string) ([]Document, DirStats, error)
}
