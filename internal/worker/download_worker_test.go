package worker

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veranemoloko/image-downloader/internal/classify"
	"github.com/veranemoloko/image-downloader/internal/config"
	"github.com/veranemoloko/image-downloader/internal/domain"
	"github.com/veranemoloko/image-downloader/internal/storage"
	"github.com/veranemoloko/image-downloader/internal/testutils"
	"github.com/veranemoloko/image-downloader/internal/transport"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWorker(t *testing.T, mutate func(cfg *config.Config)) (*DownloadWorker, string) {
	t.Helper()
	cfg := config.Default()
	cfg.DownloadDir = t.TempDir()
	cfg.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	fs := storage.NewFileStorage(cfg.DownloadDir)
	require.NoError(t, fs.EnsureDir())

	client, err := transport.NewClient(transport.Options{
		Header: transport.DefaultHeader(cfg.UserAgent, config.DefaultAccept),
	})
	require.NoError(t, err)

	return NewDownloadWorker(cfg, fs, client, newTestLogger()), cfg.DownloadDir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDownloadWorker_Fetch_AcceptsPNG(t *testing.T) {
	w, dir := newTestWorker(t, nil)
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/photo": {Body: testutils.PNG(t, 32, 32)},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{
		URL:           server.URL + "/photo",
		CandidateName: "Google_0001",
	})

	require.True(t, outcome.Accepted)
	assert.Equal(t, filepath.Join(dir, "Google_0001.png"), outcome.FinalPath)
	assert.Equal(t, "png", outcome.Format)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, []string{"Google_0001.png"}, listDir(t, dir))

	data, err := os.ReadFile(outcome.FinalPath)
	require.NoError(t, err)
	assert.Equal(t, classify.PNG, classify.Classify(data))
}

func TestDownloadWorker_Fetch_ExtensionFromContent(t *testing.T) {
	w, dir := newTestWorker(t, nil)
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/image.png": {Body: testutils.JPEG(t, 16, 16)},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{
		URL:           server.URL + "/image.png",
		CandidateName: "img_0001",
	})

	require.True(t, outcome.Accepted)
	assert.Equal(t, []string{"img_0001.jpg"}, listDir(t, dir))
}

func TestDownloadWorker_Fetch_DisallowedFormatNotRetried(t *testing.T) {
	w, dir := newTestWorker(t, func(cfg *config.Config) { cfg.Formats = []string{"png"} })
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/photo.jpg": {Body: testutils.JPEG(t, 16, 16)},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{
		URL:           server.URL + "/photo.jpg",
		CandidateName: "img_0001",
	})

	assert.False(t, outcome.Accepted)
	assert.Empty(t, outcome.FinalPath)
	assert.Equal(t, domain.ReasonFormat, outcome.Reason)
	assert.Equal(t, 1, server.Hits("/photo.jpg"))
	assert.Empty(t, listDir(t, dir))
}

func TestDownloadWorker_Fetch_RejectsHTML(t *testing.T) {
	w, dir := newTestWorker(t, nil)
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/page": {Body: testutils.HTMLPage},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{
		URL:           server.URL + "/page",
		CandidateName: "img_0001",
	})

	assert.False(t, outcome.Accepted)
	assert.Equal(t, domain.ReasonFormat, outcome.Reason)
	assert.Equal(t, 1, server.Hits("/page"))
	assert.Empty(t, listDir(t, dir))
}

func TestDownloadWorker_Fetch_RejectsSmallImage(t *testing.T) {
	w, dir := newTestWorker(t, func(cfg *config.Config) {
		cfg.MinWidth = 100
		cfg.MinHeight = 100
	})
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/small": {Body: testutils.PNG(t, 50, 50)},
		"/large": {Body: testutils.PNG(t, 120, 100)},
	})

	small := w.Fetch(context.Background(), domain.DownloadRequest{URL: server.URL + "/small", CandidateName: "img_0001"})
	large := w.Fetch(context.Background(), domain.DownloadRequest{URL: server.URL + "/large", CandidateName: "img_0002"})

	assert.False(t, small.Accepted)
	assert.Equal(t, domain.ReasonTooSmall, small.Reason)
	assert.Equal(t, 1, server.Hits("/small"))
	assert.True(t, large.Accepted)
	assert.Equal(t, []string{"img_0002.png"}, listDir(t, dir))
}

func TestDownloadWorker_Fetch_UndecodableImagePassesSizeFilter(t *testing.T) {
	w, dir := newTestWorker(t, func(cfg *config.Config) {
		cfg.MinWidth = 100
		cfg.MinHeight = 100
	})
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/broken.webp": {Body: testutils.WebPHeader},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{URL: server.URL + "/broken.webp", CandidateName: "img_0001"})

	assert.True(t, outcome.Accepted)
	assert.Equal(t, []string{"img_0001.webp"}, listDir(t, dir))
}

func TestDownloadWorker_Fetch_ServerErrorRetriedThreeTimes(t *testing.T) {
	w, dir := newTestWorker(t, nil)
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/flaky": {Status: http.StatusInternalServerError, Body: []byte("oops")},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{URL: server.URL + "/flaky", CandidateName: "img_0001"})

	assert.False(t, outcome.Accepted)
	assert.Equal(t, domain.ReasonTransport, outcome.Reason)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, server.Hits("/flaky"))
	assert.Empty(t, listDir(t, dir))
}

func TestDownloadWorker_Fetch_RecoversAfterTransientFailure(t *testing.T) {
	w, dir := newTestWorker(t, nil)
	png := testutils.PNG(t, 8, 8)
	var calls atomic.Int32
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/retry": {Handler: func(rw http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				http.Error(rw, "busy", http.StatusServiceUnavailable)
				return
			}
			rw.Write(png)
		}},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{URL: server.URL + "/retry", CandidateName: "img_0001"})

	assert.True(t, outcome.Accepted)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, []string{"img_0001.png"}, listDir(t, dir))
}

func TestDownloadWorker_Fetch_ConnectionRefused(t *testing.T) {
	w, dir := newTestWorker(t, nil)
	server := testutils.NewImageServer(t, nil)
	url := server.URL + "/gone"
	server.Close()

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{URL: url, CandidateName: "img_0001"})

	assert.False(t, outcome.Accepted)
	assert.Equal(t, domain.ReasonTransport, outcome.Reason)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Empty(t, listDir(t, dir))
}

func TestDownloadWorker_Fetch_MalformedURLRetried(t *testing.T) {
	w, _ := newTestWorker(t, nil)

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{URL: "://missing-scheme", CandidateName: "img_0001"})

	assert.False(t, outcome.Accepted)
	assert.Equal(t, 3, outcome.Attempts)
}

func TestDownloadWorker_Fetch_EachAttemptGetsItsOwnTimeout(t *testing.T) {
	w, dir := newTestWorker(t, func(cfg *config.Config) { cfg.Timeout = 50 * time.Millisecond })
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/slow": {Handler: func(rw http.ResponseWriter, r *http.Request) {
			select {
			case <-time.After(2 * time.Second):
			case <-r.Context().Done():
			}
		}},
	})

	start := time.Now()
	outcome := w.Fetch(context.Background(), domain.DownloadRequest{URL: server.URL + "/slow", CandidateName: "img_0001"})

	assert.False(t, outcome.Accepted)
	assert.Equal(t, 3, outcome.Attempts)
	assert.Equal(t, 3, server.Hits("/slow"))
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Empty(t, listDir(t, dir))
}

func TestDownloadWorker_Fetch_PayloadTooLargeNotRetried(t *testing.T) {
	w, dir := newTestWorker(t, func(cfg *config.Config) { cfg.MaxFileSize = 64 })
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/huge": {Body: testutils.PNG(t, 64, 64)},
	})

	outcome := w.Fetch(context.Background(), domain.DownloadRequest{URL: server.URL + "/huge", CandidateName: "img_0001"})

	assert.False(t, outcome.Accepted)
	assert.Equal(t, domain.ReasonTooLarge, outcome.Reason)
	assert.Equal(t, 1, server.Hits("/huge"))
	assert.Empty(t, listDir(t, dir))
}

func TestDownloadWorker_Fetch_CancelledContext(t *testing.T) {
	w, dir := newTestWorker(t, nil)
	server := testutils.NewImageServer(t, map[string]testutils.Route{
		"/photo": {Body: testutils.PNG(t, 8, 8)},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := w.Fetch(ctx, domain.DownloadRequest{URL: server.URL + "/photo", CandidateName: "img_0001"})

	assert.False(t, outcome.Accepted)
	assert.Equal(t, domain.ReasonDeadline, outcome.Reason)
	assert.Equal(t, 0, outcome.Attempts)
	assert.Equal(t, 0, server.Hits("/photo"))
	assert.Empty(t, listDir(t, dir))
}
