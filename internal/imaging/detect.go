package imaging

import (
	"bytes"

	"github.com/joseph-ayodele/ttn-extractor/constants"
)

var (
	sigPDF   = []byte("%PDF")
	sigJPEG  = []byte{0xFF, 0xD8, 0xFF}
	sigPNG   = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	sigGIF87 = []byte("GIF87a")
	sigGIF89 = []byte("GIF89a")
	sigBMP   = []byte("BM")
	sigRIFF  = []byte("RIFF")
	sigWEBP  = []byte("WEBP")
)

// DetectMediaType identifies the payload by its leading bytes only.
func DetectMediaType(b []byte) constants.MediaType {
	switch {
	case bytes.HasPrefix(b, sigPDF):
		return constants.MediaPDF
	case bytes.HasPrefix(b, sigJPEG):
		return constants.MediaJPEG
	case bytes.HasPrefix(b, sigPNG):
		return constants.MediaPNG
	case bytes.HasPrefix(b, sigGIF87), bytes.HasPrefix(b, sigGIF89):
		return constants.MediaGIF
	case len(b) >= 12 && bytes.HasPrefix(b, sigRIFF) && bytes.Equal(b[8:12], sigWEBP):
		return constants.MediaWEBP
	case bytes.HasPrefix(b, sigBMP):
		return constants.MediaBMP
	default:
		return constants.MediaUnknown
	}
}
