// Package rehost uploads local files to public anonymous file hosts to
// obtain URLs the generation provider can fetch. Hosts are tried in a
// fixed priority order; any failure is soft and moves on to the next
// host, one attempt per host per asset.
package rehost

import (
	"context"
	"errors"
	"fmt"

	"github.com/reelforge/server/internal/module/generation"
	"github.com/reelforge/server/internal/shared/logger"
	"github.com/reelforge/server/internal/shared/metrics"
)

// ErrAllHostsFailed means no host produced a usable URL; the asset
// cannot be used downstream.
var ErrAllHostsFailed = errors.New("all file hosts failed")

// Uploader is one public file host.
type Uploader interface {
	Host() generation.RehostHost
	Upload(ctx context.Context, localPath string) (string, error)
}

// Rehoster tries uploaders in order and returns the first working URL.
type Rehoster struct {
	uploaders []Uploader
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// Config holds rehoster dependencies.
type Config struct {
	// Uploaders overrides the default catbox → transfer.sh → 0x0 order.
	Uploaders []Uploader
	Metrics   *metrics.Metrics
	Logger    *logger.Logger
}

// New creates a rehoster. With no explicit uploaders the default host
// order is used with the given HTTP client.
func New(cfg *Config) *Rehoster {
	return &Rehoster{
		uploaders: cfg.Uploaders,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
	}
}

// Rehost uploads the file to the first host that accepts it. Every
// host failing is a hard failure for this asset.
func (r *Rehoster) Rehost(ctx context.Context, localPath string) (*generation.RehostedAsset, error) {
	var lastErr error
	for _, up := range r.uploaders {
		url, err := up.Upload(ctx, localPath)
		if r.metrics != nil {
			r.metrics.RecordRehostUpload(string(up.Host()), err)
		}
		if err != nil {
			lastErr = err
			r.log.Warn("host upload failed",
				logger.String("host", string(up.Host())),
				logger.String("path", localPath),
				logger.Err(err),
			)
			continue
		}
		return &generation.RehostedAsset{
			LocalPath: localPath,
			PublicURL: url,
			Host:      up.Host(),
		}, nil
	}
	return nil, fmt.Errorf("%w: %w", ErrAllHostsFailed, lastErr)
}

var _ generation.Rehoster = (*Rehoster)(nil)
