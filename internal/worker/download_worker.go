package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/veranemoloko/image-downloader/internal/classify"
	"github.com/veranemoloko/image-downloader/internal/config"
	"github.com/veranemoloko/image-downloader/internal/dimension"
	"github.com/veranemoloko/image-downloader/internal/domain"
	apperrors "github.com/veranemoloko/image-downloader/internal/errors"
	"github.com/veranemoloko/image-downloader/internal/metrics"
	"github.com/veranemoloko/image-downloader/internal/retry"
	"github.com/veranemoloko/image-downloader/internal/storage"
)

// DownloadWorker fetches single images, validates them and stores accepted
// ones in FileStorage. It is safe for concurrent use.
type DownloadWorker struct {
	cfg         config.Config
	formats     classify.FormatSet
	fileStorage *storage.FileStorage
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewDownloadWorker creates a DownloadWorker. cfg is copied and must not be
// changed by the caller afterwards; a nil client uses http.DefaultClient.
func NewDownloadWorker(cfg config.Config, fileStorage *storage.FileStorage, client *http.Client, logger *slog.Logger) *DownloadWorker {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.Formats = append([]string(nil), cfg.Formats...)
	return &DownloadWorker{
		cfg:         cfg,
		formats:     classify.NewFormatSet(cfg.Formats...),
		fileStorage: fileStorage,
		httpClient:  client,
		logger:      logger,
	}
}

// Fetch downloads req.URL, retrying transport failures up to the configured
// limit, and keeps the payload only if it is an allowed image of sufficient size.
// Every failure is reported through the returned outcome.
func (w *DownloadWorker) Fetch(ctx context.Context, req domain.DownloadRequest) domain.DownloadOutcome {
	log := w.logger.With("url", req.URL, "candidate", req.CandidateName)

	var body []byte
	attempts, err := retry.Do(ctx, w.cfg.RetryLimit, func(ctx context.Context, attempt int) error {
		metrics.FetchAttempts.Inc()
		data, err := w.get(ctx, req.URL)
		if err != nil {
			if !retry.IsPermanent(err) {
				metrics.FetchAttemptFailures.Inc()
			}
			log.Debug("fetch attempt failed", "attempt", attempt, "error", err)
			return err
		}
		body = data
		return nil
	})

	outcome := domain.DownloadOutcome{Attempts: attempts}
	if err != nil {
		reason := domain.ReasonTransport
		switch {
		case errors.Is(err, apperrors.ErrPayloadTooLarge):
			reason = domain.ReasonTooLarge
		case ctx.Err() != nil:
			reason = domain.ReasonDeadline
		}
		return w.reject(log, outcome, reason, err)
	}

	if _, err := w.fileStorage.WriteTemp(req.CandidateName, body); err != nil {
		return w.reject(log, outcome, domain.ReasonStorage, err)
	}

	format := classify.Classify(body)
	outcome.Format = string(format)
	if !w.formats.Contains(format) {
		return w.discard(log, req, outcome, domain.ReasonFormat,
			fmt.Errorf("%w: %q", apperrors.ErrUnsupportedFormat, format))
	}

	if w.cfg.SizeFilterEnabled() && !dimension.PassesMinimum(body, w.cfg.MinWidth, w.cfg.MinHeight, log) {
		return w.discard(log, req, outcome, domain.ReasonTooSmall, apperrors.ErrImageTooSmall)
	}

	// The batch may have given up on us while we were busy; an uncounted
	// image must not appear under its final name.
	if err := ctx.Err(); err != nil {
		return w.discard(log, req, outcome, domain.ReasonDeadline, err)
	}

	finalPath, err := w.fileStorage.Promote(req.CandidateName, format.Extension())
	if err != nil {
		return w.discard(log, req, outcome, domain.ReasonStorage, err)
	}

	outcome.Accepted = true
	outcome.FinalPath = finalPath
	metrics.DownloadsAccepted.Inc()
	log.Debug("image stored", "path", finalPath, "format", format, "attempts", attempts)
	return outcome
}

// get performs one GET bounded by the per-request timeout and returns the full body.
func (w *DownloadWorker) get(ctx context.Context, url string) ([]byte, error) {
	if w.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrBadStatus, resp.Status)
	}

	var src io.Reader = resp.Body
	if w.cfg.MaxFileSize > 0 {
		src = io.LimitReader(resp.Body, w.cfg.MaxFileSize+1)
	}
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	metrics.DownloadBytes.Add(float64(len(data)))

	if w.cfg.MaxFileSize > 0 && int64(len(data)) > w.cfg.MaxFileSize {
		return nil, retry.Permanent(fmt.Errorf("%w: more than %d bytes", apperrors.ErrPayloadTooLarge, w.cfg.MaxFileSize))
	}
	return data, nil
}

func (w *DownloadWorker) discard(log *slog.Logger, req domain.DownloadRequest, outcome domain.DownloadOutcome, reason domain.RejectReason, cause error) domain.DownloadOutcome {
	if err := w.fileStorage.Discard(req.CandidateName); err != nil {
		log.Error("failed to remove temp file", "error", err)
	}
	return w.reject(log, outcome, reason, cause)
}

func (w *DownloadWorker) reject(log *slog.Logger, outcome domain.DownloadOutcome, reason domain.RejectReason, cause error) domain.DownloadOutcome {
	outcome.Accepted = false
	outcome.FinalPath = ""
	outcome.Reason = reason
	metrics.DownloadsRejected.WithLabelValues(string(reason)).Inc()
	log.Info("download rejected",
		"reason", reason,
		"terminal", reason.Terminal(),
		"attempts", outcome.Attempts,
		"error", cause,
	)
	return outcome
}
