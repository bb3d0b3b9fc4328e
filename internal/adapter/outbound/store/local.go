// Package store manages the local file layout: one directory for
// uploaded reference images and one for downloaded video artifacts.
package store

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reelforge/server/internal/module/generation"
	"github.com/reelforge/server/internal/shared/logger"
	"github.com/reelforge/server/internal/shared/metrics"
)

// Local stores uploads and generated videos on local disk.
type Local struct {
	uploadsDir string
	outputsDir string
	http       *http.Client
	metrics    *metrics.Metrics
	log        *logger.Logger
}

// Config holds local store configuration.
type Config struct {
	UploadsDir string
	OutputsDir string
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	Logger     *logger.Logger
}

// New creates the store and its directories.
func New(cfg *Config) (*Local, error) {
	for _, dir := range []string{cfg.UploadsDir, cfg.OutputsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return &Local{
		uploadsDir: cfg.UploadsDir,
		outputsDir: cfg.OutputsDir,
		http:       cfg.HTTPClient,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
	}, nil
}

// OutputsDir returns the artifact directory.
func (l *Local) OutputsDir() string {
	return l.outputsDir
}

// SaveUpload stores an uploaded file under a collision-safe name:
// {role}_{random hex}_{sanitized original}. The stored name, never the
// raw user filename, is what gets rehosted.
func (l *Local) SaveUpload(file *multipart.FileHeader, role string) (string, error) {
	name := fmt.Sprintf("%s_%s_%s", role, randomHex(), SanitizeFilename(file.Filename))
	dst := filepath.Join(l.uploadsDir, name)

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write file: %w", err)
	}
	return dst, nil
}

// OutputFilename returns the deterministic artifact name for a task.
func OutputFilename(taskID string) string {
	return SanitizeFilename(taskID) + ".mp4"
}

// OutputPath resolves an artifact filename inside the outputs dir. The
// name is sanitized so path traversal cannot escape it.
func (l *Local) OutputPath(filename string) string {
	return filepath.Join(l.outputsDir, SanitizeFilename(filename))
}

// Materialize downloads the video for taskID to the deterministic
// local path, skipping the fetch when a non-empty file already exists.
// The size check is an at-most-once optimization, not an integrity
// guarantee.
func (l *Local) Materialize(ctx context.Context, taskID, videoURL string) (string, error) {
	filename := OutputFilename(taskID)
	dst := filepath.Join(l.outputsDir, filename)

	if info, err := os.Stat(dst); err == nil && info.Size() > 0 {
		if l.metrics != nil {
			l.metrics.ArtifactDownloads.WithLabelValues("cached").Inc()
		}
		return filename, nil
	}

	if err := l.fetch(ctx, videoURL, dst); err != nil {
		if l.metrics != nil {
			l.metrics.ArtifactDownloads.WithLabelValues("failed").Inc()
		}
		return "", err
	}
	if l.metrics != nil {
		l.metrics.ArtifactDownloads.WithLabelValues("fetched").Inc()
	}
	l.log.Info("artifact downloaded",
		logger.String("task_id", taskID),
		logger.String("file", filename),
	)
	return filename, nil
}

// fetch streams the remote video to dst. The write goes through a temp
// file and a rename so a failed download leaves no partial artifact;
// concurrent writers for the same task id race harmlessly (last rename
// wins, files stay whole).
func (l *Local) fetch(ctx context.Context, videoURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, videoURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := l.http.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(l.outputsDir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}

// SanitizeFilename strips directory components and any character
// outside a conservative allowlist.
func SanitizeFilename(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		out = "file"
	}
	return out
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

var _ generation.ArtifactStore = (*Local)(nil)
