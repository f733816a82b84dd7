package batch

import (
	"context"

	"github.com/veranemoloko/image-downloader/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mock.go

// Fetcher downloads and validates a single request. Implementations must
// report every failure through the outcome and return once ctx is done.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.DownloadRequest) domain.DownloadOutcome
}
