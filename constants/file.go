package constants

import "strings"

// MediaType is the detected kind of an uploaded document payload.
type MediaType string

const (
	MediaPDF     MediaType = "pdf"
	MediaJPEG    MediaType = "jpeg"
	MediaPNG     MediaType = "png"
	MediaGIF     MediaType = "gif"
	MediaBMP     MediaType = "bmp"
	MediaWEBP    MediaType = "webp"
	MediaUnknown MediaType = "unknown"
)

// IsImage reports whether the media type is a raster image format.
func (m MediaType) IsImage() bool {
	switch m {
	case MediaJPEG, MediaPNG, MediaGIF, MediaBMP, MediaWEBP:
		return true
	}
	return false
}

// AllowedExtensions holds the default allowed file extensions for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"bmp":  {},
	"webp": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MediaTypeFromExt maps a file extension to the media type it declares.
func MediaTypeFromExt(ext string) MediaType {
	switch NormalizeExt(ext) {
	case "pdf":
		return MediaPDF
	case "jpg", "jpeg":
		return MediaJPEG
	case "png":
		return MediaPNG
	case "gif":
		return MediaGIF
	case "bmp":
		return MediaBMP
	case "webp":
		return MediaWEBP
	default:
		return MediaUnknown
	}
}

// ParseMediaType accepts a declared media type ("pdf", "image/png", ".jpg") and maps it.
func ParseMediaType(s string) MediaType {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "image/")
	s = strings.TrimPrefix(s, "application/")
	if s == "" {
		return MediaUnknown
	}
	return MediaTypeFromExt(s)
}
