package generation

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/reelforge/server/internal/shared/errors"
	"github.com/reelforge/server/internal/shared/logger"
)

// Service coordinates the full generation flow: submit a task across
// the provider pool, poll it to a terminal state and materialize the
// resulting video. One synchronous flow per request; nothing is shared
// between requests beyond the artifact files on disk.
type Service struct {
	pool     ClientPool
	rehoster Rehoster
	store    ArtifactStore
	poller   *Poller

	model            string
	defaultAPIKey    string
	defaultBaseURL   string
	statusDeadline   time.Duration
	generateDeadline time.Duration

	log *logger.Logger
}

// ServiceConfig holds service dependencies and defaults.
type ServiceConfig struct {
	Pool     ClientPool
	Rehoster Rehoster
	Store    ArtifactStore
	Poller   *Poller

	Model            string
	DefaultAPIKey    string
	DefaultBaseURL   string
	StatusDeadline   time.Duration
	GenerateDeadline time.Duration

	Logger *logger.Logger
}

// NewService creates a new generation service.
func NewService(cfg *ServiceConfig) *Service {
	statusDeadline := cfg.StatusDeadline
	if statusDeadline <= 0 {
		statusDeadline = 3 * time.Second
	}
	generateDeadline := cfg.GenerateDeadline
	if generateDeadline <= 0 {
		generateDeadline = 5 * time.Minute
	}
	return &Service{
		pool:             cfg.Pool,
		rehoster:         cfg.Rehoster,
		store:            cfg.Store,
		poller:           cfg.Poller,
		model:            cfg.Model,
		defaultAPIKey:    cfg.DefaultAPIKey,
		defaultBaseURL:   cfg.DefaultBaseURL,
		statusDeadline:   statusDeadline,
		generateDeadline: generateDeadline,
		log:              cfg.Logger,
	}
}

// CallOptions carries per-call credential and endpoint overrides,
// threaded explicitly instead of read from ambient process state.
type CallOptions struct {
	APIKey  string
	BaseURL string
}

// Result is the caller-facing outcome of a generation or status call.
type Result struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	VideoFile string     `json:"video_file,omitempty"`
	Detail    string     `json:"detail,omitempty"`
}

func (s *Service) resolve(opts CallOptions) (string, []ProviderClient, error) {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = s.defaultAPIKey
	}
	if apiKey == "" {
		return "", nil, apperrors.BadRequest("api_key is required")
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = s.defaultBaseURL
	}
	return apiKey, s.pool.Clients(apiKey, baseURL), nil
}

// Rehost uploads one stored file to a public host. The caller treats a
// returned error as a hard failure for that asset.
func (s *Service) Rehost(ctx context.Context, localPath string) (*RehostedAsset, error) {
	asset, err := s.rehoster.Rehost(ctx, localPath)
	if err != nil {
		s.log.Warn("rehost failed", logger.String("path", localPath), logger.Err(err))
		return nil, apperrors.RehostFailed("", err)
	}
	s.log.Info("rehosted asset",
		logger.String("path", localPath),
		logger.String("host", string(asset.Host)),
		logger.String("url", asset.PublicURL),
	)
	return asset, nil
}

// Submit creates a generation task, trying each pool client in order
// and returning the first accepted task id.
func (s *Service) Submit(ctx context.Context, req *Request, opts CallOptions) (string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return "", apperrors.ValidationError(err.Error())
	}

	_, clients, err := s.resolve(opts)
	if err != nil {
		return "", err
	}

	prompt := req.PromptText()
	var lastErr error
	for _, client := range clients {
		taskID, err := client.CreateTask(ctx, s.model, prompt, req.ReferenceImageURLs)
		if err != nil {
			lastErr = err
			s.log.Warn("create task failed",
				logger.String("endpoint", client.Endpoint()),
				logger.Err(err),
			)
			continue
		}
		s.log.Info("task created",
			logger.String("endpoint", client.Endpoint()),
			logger.String("task_id", taskID),
		)
		return taskID, nil
	}

	if errors.Is(lastErr, apperrors.ErrUnauthorized) {
		return "", apperrors.Unauthorized(lastErr.Error())
	}
	return "", apperrors.SubmissionFailed("all provider endpoints rejected the task", lastErr)
}

// Generate runs the synchronous end-to-end flow: submit, poll to a
// terminal state under the long deadline, download the video.
func (s *Service) Generate(ctx context.Context, req *Request, opts CallOptions) (*Result, error) {
	taskID, err := s.Submit(ctx, req, opts)
	if err != nil {
		return nil, err
	}

	_, clients, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}

	task := s.poller.Poll(ctx, clients, taskID, s.generateDeadline)
	switch task.Status {
	case StatusSucceeded:
		return s.materialize(ctx, task)
	case StatusFailed:
		return nil, apperrors.TaskFailed(task.Error)
	default:
		var cause error
		if task.Error != "" {
			cause = errors.New(task.Error)
		}
		return nil, apperrors.TaskTimeout(cause)
	}
}

// Status performs a bounded status check: at most one polling round
// before reporting "processing". A succeeded task has its artifact
// materialized so the response can carry a local link.
func (s *Service) Status(ctx context.Context, taskID string, opts CallOptions) (*Result, error) {
	if taskID == "" {
		return nil, apperrors.BadRequest("task_id is required")
	}
	_, clients, err := s.resolve(opts)
	if err != nil {
		return nil, err
	}

	task := s.poller.Poll(ctx, clients, taskID, s.statusDeadline)
	switch task.Status {
	case StatusSucceeded:
		return s.materialize(ctx, task)
	case StatusFailed:
		return nil, apperrors.TaskFailed(task.Error)
	default:
		// Deadline expiry on the short path means the task is simply
		// not done yet, not a user-visible timeout.
		return &Result{TaskID: taskID, Status: StatusProcessing}, nil
	}
}

func (s *Service) materialize(ctx context.Context, task *Task) (*Result, error) {
	if task.VideoURL == "" {
		return nil, apperrors.TaskFailed("no video URL in completed task")
	}
	filename, err := s.store.Materialize(ctx, task.ID, task.VideoURL)
	if err != nil {
		return nil, apperrors.DownloadFailed(err)
	}
	return &Result{
		TaskID:    task.ID,
		Status:    StatusSucceeded,
		VideoFile: filename,
	}, nil
}
