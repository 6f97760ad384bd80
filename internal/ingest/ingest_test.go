package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

func writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestAllowedExtAndHidden(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true}, {"JPG", true}, {".webp", true}, {".bmp", true},
		{".heic", false}, {".txt", false}, {"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AllowedExt(tt.ext), tt.ext)
	}
	assert.True(t, IsHidden("/a/.cache"))
	assert.False(t, IsHidden("/a/scan.png"))
	assert.False(t, IsHidden("."))
}

func TestReadPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ttn-001.PNG")
	writeFile(t, path, "png bytes")

	doc, err := NewFSIngestor(nil).ReadPath(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "png", doc.FileExt)
	assert.Equal(t, constants.MediaPNG, doc.MediaType)
	assert.Equal(t, entity.DocumentIDFor([]byte("png bytes")), doc.DocumentID)
	assert.Len(t, doc.HashHex, 64)
	assert.EqualValues(t, 9, doc.Size)

	_, err = NewFSIngestor(nil).ReadPath(context.Background(), filepath.Join(dir, "notes.txt"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	limited := NewFSIngestor(nil)
	limited.MaxBytes = 4
	_, err = limited.ReadPath(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"), "%PDF-1 a")
	writeFile(t, filepath.Join(root, "b.jpg"), "jpeg b")
	writeFile(t, filepath.Join(root, "sub", "c.png"), "png c")
	writeFile(t, filepath.Join(root, "sub", "copy.png"), "png c")
	writeFile(t, filepath.Join(root, "readme.txt"), "skip")
	writeFile(t, filepath.Join(root, ".hidden", "d.png"), "png d")
	writeFile(t, filepath.Join(root, ".e.png"), "png e")

	docs, stats, err := NewFSIngestor(nil).Collect(context.Background(), root)
	require.NoError(t, err)

	var names []string
	for _, d := range docs {
		assert.Empty(t, d.Err)
		names = append(names, filepath.Base(d.SourcePath))
	}
	assert.Equal(t, []string{"a.pdf", "b.jpg", "c.png"}, names)
	assert.EqualValues(t, 4, stats.Matched)
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Deduplicated)
	assert.Zero(t, stats.Failed)

	again, _, err := NewFSIngestor(nil).Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, docs[0].DocumentID, again[0].DocumentID)
}

func TestCollect_MaxFilesAndErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.png"), "a")
	writeFile(t, filepath.Join(root, "b.png"), "b")
	writeFile(t, filepath.Join(root, "c.png"), "c")

	ing := NewFSIngestor(nil)
	ing.MaxFiles = 2
	docs, stats, err := ing.Collect(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.EqualValues(t, 3, stats.Matched)

	_, _, err = ing.Collect(context.Background(), "  ")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.pdf"), "%PDF")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, "existing.pdf", filepath.Base(p))
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit the existing file")
	}

	writeFile(t, filepath.Join(root, "new.png"), "png")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-events:
			if filepath.Base(p) == "new.png" {
				return
			}
		case <-deadline:
			t.Fatal("watcher did not report the new file")
		}
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}
