// Package media inspects uploaded files: their kind, extension and, for MP4
// family containers, their duration.
package media

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/abema/go-mp4"
	"github.com/gabriel-vasile/mimetype"
)

// IsVideo reports whether the declared content type is a video.
func IsVideo(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "video/")
}

// IsImage reports whether the declared content type is an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(contentType), "image/")
}

// IsWebVTT accepts a .vtt file name or a text/vtt content type.
func IsWebVTT(filename, contentType string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".vtt") ||
		strings.HasPrefix(strings.ToLower(contentType), "text/vtt")
}

// DetectContentType sniffs the content type of stored bytes.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// Extension returns the lower-case extension of filename without the dot,
// falling back to the content type's subtype.
func Extension(filename, contentType string) string {
	if ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), "."); ext != "" {
		return ext
	}
	if _, sub, ok := strings.Cut(strings.ToLower(contentType), "/"); ok {
		sub, _, _ = strings.Cut(sub, ";")
		return strings.TrimSpace(sub)
	}
	return "bin"
}

// HasMP4Container reports whether the extension belongs to the ISO BMFF family.
func HasMP4Container(ext string) bool {
	switch strings.ToLower(ext) {
	case "mp4", "m4v", "mov":
		return true
	}
	return false
}

// Duration reads the movie header of an ISO BMFF file and returns its length
// in whole seconds. The reader is rewound before returning.
func Duration(r io.ReadSeeker) (int32, error) {
	defer r.Seek(0, io.SeekStart) //nolint:errcheck // best effort rewind for the caller

	info, err := mp4.Probe(r)
	if err != nil {
		return 0, fmt.Errorf("probe mp4: %w", err)
	}
	if info.Timescale == 0 {
		return 0, fmt.Errorf("probe mp4: zero timescale")
	}

	seconds := math.Round(float64(info.Duration) / float64(info.Timescale))
	if seconds > math.MaxInt32 {
		return 0, fmt.Errorf("probe mp4: duration out of range")
	}
	return int32(seconds), nil
}
