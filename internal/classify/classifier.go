// Package classify determines the real image format of a payload from its
// leading bytes, ignoring any URL extension or Content-Type header.
package classify

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a canonical image extension without the leading dot.
type Format string

const (
	None Format = ""
	JPEG Format = "jpg"
	PNG  Format = "png"
	BMP  Format = "bmp"
	WEBP Format = "webp"
	GIF  Format = "gif"
	TIFF Format = "tiff"
)

var byMIME = map[string]Format{
	"image/jpeg": JPEG,
	"image/png":  PNG,
	"image/bmp":  BMP,
	"image/webp": WEBP,
	"image/gif":  GIF,
	"image/tiff": TIFF,
}

// Classify sniffs data and returns its image format, or None when the bytes
// match no recognized image signature.
func Classify(data []byte) Format {
	if len(data) == 0 {
		return None
	}
	mt := mimetype.Detect(data)
	for m := mt; m != nil; m = m.Parent() {
		if f, ok := byMIME[m.String()]; ok {
			return f
		}
	}
	return None
}

// Extension returns the file extension for f, e.g. ".jpg".
func (f Format) Extension() string {
	if f == None {
		return ""
	}
	return "." + string(f)
}

// Normalize maps a user supplied format name to its canonical Format.
// "jpeg", ".JPG" and "jpg" all yield JPEG; "tif" yields TIFF.
func Normalize(name string) Format {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "."))
	switch name {
	case "jpeg", "jpg", "jpe":
		return JPEG
	case "tif", "tiff":
		return TIFF
	case "":
		return None
	}
	return Format(name)
}

// FormatSet is an allow-list of canonical formats.
type FormatSet map[Format]struct{}

// NewFormatSet builds an allow-list from format names, normalizing each.
func NewFormatSet(names ...string) FormatSet {
	set := make(FormatSet, len(names))
	for _, n := range names {
		if f := Normalize(n); f != None {
			set[f] = struct{}{}
		}
	}
	return set
}

// Contains reports whether f is allowed. None is never allowed.
func (s FormatSet) Contains(f Format) bool {
	if f == None {
		return false
	}
	_, ok := s[f]
	return ok
}
