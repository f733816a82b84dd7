// Package batch runs a list of URLs through fetch workers on a bounded pool
// under a single deadline and counts the images kept.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/veranemoloko/image-downloader/internal/config"
	"github.com/veranemoloko/image-downloader/internal/domain"
	apperrors "github.com/veranemoloko/image-downloader/internal/errors"
	"github.com/veranemoloko/image-downloader/internal/metrics"
	"github.com/veranemoloko/image-downloader/internal/naming"
	"github.com/veranemoloko/image-downloader/internal/storage"
)

// Coordinator dispatches one batch of downloads at a time per Run call.
type Coordinator struct {
	cfg         config.Config
	fileStorage *storage.FileStorage
	fetcher     Fetcher
	namer       *naming.Namer
	logger      *slog.Logger
}

// NewCoordinator creates a Coordinator. tokens may be nil, in which case
// random tokens name files when cfg has no prefix.
func NewCoordinator(cfg config.Config, fileStorage *storage.FileStorage, fetcher Fetcher, tokens naming.TokenSource, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = config.Default().Concurrency
	}
	if cfg.BatchDeadline <= 0 {
		cfg.BatchDeadline = config.Default().BatchDeadline
	}
	return &Coordinator{
		cfg:         cfg,
		fileStorage: fileStorage,
		fetcher:     fetcher,
		namer:       naming.NewNamer(cfg.FilePrefix, tokens),
		logger:      logger,
	}
}

// Run downloads urls and returns how many were accepted before the batch
// deadline. Per-item failures never abort the batch; the only error returned
// is a failure to prepare the destination directory.
func (c *Coordinator) Run(ctx context.Context, urls []string) (domain.BatchResult, error) {
	log := c.logger.With("batch_id", uuid.NewString())
	result := domain.BatchResult{Total: len(urls)}

	if err := c.fileStorage.EnsureDir(); err != nil {
		return result, fmt.Errorf("prepare destination: %w", err)
	}

	reqs := c.namer.Assign(urls)
	if len(reqs) == 0 {
		return result, nil
	}

	start := time.Now()
	log.Info("batch started",
		"urls", len(reqs),
		"workers", c.cfg.Concurrency,
		"dir", c.fileStorage.Dir(),
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.BatchDeadline)
	defer cancel()

	// Buffered so abandoned workers never block on send.
	outcomes := make(chan domain.DownloadOutcome, len(reqs))

	go func() {
		var g errgroup.Group
		g.SetLimit(c.cfg.Concurrency)
		for _, req := range reqs {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				outcomes <- c.fetcher.Fetch(ctx, req)
				return nil
			})
		}
		g.Wait()
		close(outcomes)
	}()

	received := 0
	count := func(o domain.DownloadOutcome) {
		received++
		if o.Accepted {
			result.SuccessCount++
		}
	}

collect:
	for {
		select {
		case o, ok := <-outcomes:
			if !ok {
				break collect
			}
			count(o)
		case <-ctx.Done():
			// Outcomes already delivered finished in time.
			for {
				select {
				case o, ok := <-outcomes:
					if !ok {
						break collect
					}
					count(o)
				default:
					break collect
				}
			}
		}
	}

	result.Abandoned = len(reqs) - received
	duration := time.Since(start)

	metrics.BatchesTotal.Inc()
	metrics.BatchDuration.Observe(duration.Seconds())
	metrics.DownloadsAbandoned.Add(float64(result.Abandoned))

	if result.Abandoned > 0 {
		log.Warn("batch stopped before all downloads finished",
			"error", apperrors.ErrDeadlineExceeded,
			"abandoned", result.Abandoned,
			"deadline", c.cfg.BatchDeadline,
		)
	}
	log.Info("batch finished",
		"accepted", result.SuccessCount,
		"total", result.Total,
		"abandoned", result.Abandoned,
		"duration", duration,
	)

	return result, nil
}
