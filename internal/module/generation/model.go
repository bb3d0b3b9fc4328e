// Package generation orchestrates reference-image video generation:
// rehosting uploaded images to public hosts, submitting create-task
// requests across provider endpoints, polling until a terminal state
// and materializing the finished video locally.
package generation

import (
	"context"
	"fmt"
	"strings"
)

// TaskStatus represents the lifecycle state of a generation task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusProcessing TaskStatus = "processing"
	StatusSucceeded  TaskStatus = "succeeded"
	StatusFailed     TaskStatus = "failed"
	StatusTimedOut   TaskStatus = "timed_out"
	StatusUnknown    TaskStatus = "unknown"
)

// Terminal reports whether no further transition can occur. timed_out
// is terminal locally even though the provider may still be working.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// External collapses the non-terminal states into "processing" for
// caller-facing reporting.
func (s TaskStatus) External() TaskStatus {
	if s == StatusPending || s == StatusUnknown {
		return StatusProcessing
	}
	return s
}

// ParseStatus normalizes a provider status string.
func ParseStatus(raw string) TaskStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending", "queued":
		return StatusPending
	case "processing", "running":
		return StatusProcessing
	case "succeeded", "completed":
		return StatusSucceeded
	case "failed":
		return StatusFailed
	default:
		return StatusUnknown
	}
}

// Request holds the parameters of one video generation.
type Request struct {
	Prompt          string
	AspectRatio     string
	DurationSeconds int
	FrameRate       int
	Watermark       bool
	// Seed is the generation seed; -1 means unset (provider picks).
	Seed int
	// Temperature in [0,1]; negative means unset.
	Temperature float64
	// ReferenceImageURLs is ordered: the first URL is the subject
	// image, later URLs are auxiliary references.
	ReferenceImageURLs []string
}

const (
	defaultAspectRatio = "1092x1080"
	defaultDuration    = 5
	defaultFrameRate   = 24

	minDuration  = 1
	maxDuration  = 30
	minFrameRate = 1
	maxFrameRate = 60
)

// Normalize applies defaults and clamps numeric fields to valid ranges.
func (r *Request) Normalize() {
	if strings.TrimSpace(r.AspectRatio) == "" {
		r.AspectRatio = defaultAspectRatio
	}
	if r.DurationSeconds == 0 {
		r.DurationSeconds = defaultDuration
	}
	r.DurationSeconds = clampInt(r.DurationSeconds, minDuration, maxDuration)
	if r.FrameRate == 0 {
		r.FrameRate = defaultFrameRate
	}
	r.FrameRate = clampInt(r.FrameRate, minFrameRate, maxFrameRate)
	if r.Seed < -1 {
		r.Seed = -1
	}
	if r.Temperature > 1 {
		r.Temperature = 1
	}
}

// Validate reports whether the request can be submitted.
func (r *Request) Validate() error {
	if len(r.ReferenceImageURLs) == 0 {
		return fmt.Errorf("at least one reference image URL is required")
	}
	for i, u := range r.ReferenceImageURLs {
		if strings.TrimSpace(u) == "" {
			return fmt.Errorf("reference image URL %d is empty", i+1)
		}
	}
	return nil
}

// PromptText returns the prompt with generation parameters appended as
// inline flags, the only parameter channel the vendor API accepts:
//
//	<prompt> --ratio 1092x1080 --dur 5 --fps 24 --wm false [--seed N] [--t T]
func (r *Request) PromptText() string {
	prompt := strings.TrimSpace(r.Prompt)
	if prompt == "" {
		prompt = "Generate a video based on the provided images"
	}

	var b strings.Builder
	b.WriteString(prompt)
	fmt.Fprintf(&b, " --ratio %s --dur %d --fps %d --wm %t",
		r.AspectRatio, r.DurationSeconds, r.FrameRate, r.Watermark)
	if r.Seed >= 0 {
		fmt.Fprintf(&b, " --seed %d", r.Seed)
	}
	if r.Temperature >= 0 {
		fmt.Fprintf(&b, " --t %g", r.Temperature)
	}
	return b.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Task is the caller-facing view of a provider task. It is never
// persisted; state is re-derived from the provider on each poll.
type Task struct {
	ID       string     `json:"id"`
	Status   TaskStatus `json:"status"`
	VideoURL string     `json:"video_url,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// TaskView is the normalized form of a provider get-task response,
// produced by a single normalization point so that call sites stay
// shape-agnostic.
type TaskView struct {
	Status   TaskStatus
	VideoURL string
	Detail   string
}

// RehostHost identifies which public file host produced a URL.
type RehostHost string

const (
	HostCatbox     RehostHost = "catbox"
	HostTransferSh RehostHost = "transfersh"
	HostZeroXZero  RehostHost = "0x0"
)

// RehostedAsset is the result of rehosting one local file. An empty
// PublicURL means every host failed and the asset is unusable.
type RehostedAsset struct {
	LocalPath string     `json:"local_path"`
	PublicURL string     `json:"public_url,omitempty"`
	Host      RehostHost `json:"host,omitempty"`
}

// ProviderClient is one provider endpoint (base URL + credential).
type ProviderClient interface {
	// Endpoint returns the base URL, used for logging and metrics.
	Endpoint() string
	// CreateTask submits a generation and returns the provider task id.
	CreateTask(ctx context.Context, model, prompt string, referenceImageURLs []string) (string, error)
	// GetTask fetches and normalizes the current task state.
	GetTask(ctx context.Context, taskID string) (*TaskView, error)
}

// ClientPool builds the ordered client list for a credential. An
// explicit baseURL override pins the pool to that single endpoint.
type ClientPool interface {
	Clients(apiKey, baseURL string) []ProviderClient
}

// Rehoster uploads a local file to a public host and returns its URL.
type Rehoster interface {
	Rehost(ctx context.Context, localPath string) (*RehostedAsset, error)
}

// ArtifactStore materializes finished videos on local disk.
type ArtifactStore interface {
	// Materialize downloads the video for taskID unless a non-empty
	// file already exists, and returns the local filename.
	Materialize(ctx context.Context, taskID, videoURL string) (string, error)
}
