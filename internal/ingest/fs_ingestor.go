package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

// FSIngestor reads documents from the local filesystem.
type FSIngestor struct {
	SkipHidden bool
	MaxFiles   int   // 0 -> unlimited; further matches are counted but not read
	MaxBytes   int64 // 0 -> unlimited
	logger     *slog.Logger
}

var _ Ingestor = (*FSIngestor)(nil)

func NewFSIngestor(logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{SkipHidden: true, logger: logger}
}

func (i *FSIngestor) ReadPath(_ context.Context, path string) (Document, error) {
	var out Document

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("unsupported or missing extension", "path", abs, "ext", ext)
		return out, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("unsupported or missing extension %q", ext), common.ErrInvalidInput)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return out, err
	}
	if i.MaxBytes > 0 && info.Size() > i.MaxBytes {
		return out, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("%s is %d bytes, limit %d", abs, info.Size(), i.MaxBytes), common.ErrInvalidInput)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		i.logger.Error("read error", "path", abs, "error", err)
		return out, err
	}
	sum := sha256.Sum256(content)

	out = Document{
		SourcePath: abs,
		DocumentID: entity.DocumentIDFor(content),
		HashHex:    hex.EncodeToString(sum[:]),
		FileExt:    ext,
		MediaType:  constants.MediaTypeFromExt(ext),
		Size:       int64(len(content)),
		Content:    content,
	}
	return out, nil
}

// Collect walks root in lexical order, skips hidden entries if configured,
// and reads each matching file. Identical content is read once.
func (i *FSIngestor) Collect(ctx context.Context, root string) ([]Document, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.NewAppError(common.CodeInvalidInput, "root path is required", common.ErrInvalidInput)
	}

	var (
		results []Document
		stats   DirStats
		seen    = map[string]struct{}{}
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Document{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if i.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		if i.MaxFiles > 0 && int(stats.Succeeded+stats.Deduplicated) >= i.MaxFiles {
			return nil
		}

		doc, err := i.ReadPath(ctx, path)
		if err != nil {
			doc.SourcePath = path
			doc.Err = err.Error()
			results = append(results, doc)
			stats.Failed++
			return nil
		}
		if _, dup := seen[doc.HashHex]; dup {
			stats.Deduplicated++
			return nil
		}
		seen[doc.HashHex] = struct{}{}
		results = append(results, doc)
		stats.Succeeded++
		return nil
	})
	if err != nil && !errors.Is(err, filepath.SkipAll) {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	i.logger.Info("ingest.collect.done",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
