// Package testutils provides image fixtures and HTTP servers shared by package tests.
package testutils

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/image/bmp"
)

// HTMLPage is a body that no image signature matches.
var HTMLPage = []byte("<!DOCTYPE html><html><head><title>Not found</title></head><body>gone</body></html>")

// WebPHeader is the signature prefix of a lossy WebP file. It sniffs as WebP
// but does not decode.
var WebPHeader = []byte("RIFF\x24\x00\x00\x00WEBPVP8 \x18\x00\x00\x00")

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

// PNG encodes a w x h PNG image.
func PNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, gradient(w, h)); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// JPEG encodes a w x h JPEG image.
func JPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gradient(w, h), &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// BMP encodes a w x h BMP image.
func BMP(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, gradient(w, h)); err != nil {
		t.Fatalf("encode bmp: %v", err)
	}
	return buf.Bytes()
}

// Route is a canned response served by ImageServer.
type Route struct {
	Status int
	Body   []byte
	// Handler, when set, replaces the canned response.
	Handler http.HandlerFunc
}

// ImageServer serves the given routes and counts requests per path.
type ImageServer struct {
	*httptest.Server

	mu   sync.Mutex
	hits map[string]int
}

// NewImageServer starts a server for routes keyed by URL path. Unknown paths return 404.
func NewImageServer(t *testing.T, routes map[string]Route) *ImageServer {
	t.Helper()
	s := &ImageServer{hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.mu.Unlock()

		route, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if route.Handler != nil {
			route.Handler(w, r)
			return
		}
		status := route.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write(route.Body)
	}))
	t.Cleanup(s.Close)
	return s
}

// Hits returns how many requests were made for path.
func (s *ImageServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}
