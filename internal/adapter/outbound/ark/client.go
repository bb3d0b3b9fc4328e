// Package ark talks to the Ark content-generation API. The service is
// multi-region with inconsistent availability, so clients are built in
// an ordered pool and every response passes through one normalization
// point that tolerates the API's heterogeneous payload shapes.
package ark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/reelforge/server/internal/module/generation"
	apperrors "github.com/reelforge/server/internal/shared/errors"
	"github.com/reelforge/server/internal/shared/metrics"
)

const (
	createTaskPath = "/contents/generations/tasks"
	roleReference  = "reference_image"
)

// Client is a cheap value object pairing one base URL with one
// credential. Construction performs no I/O.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a client for one provider endpoint.
func NewClient(baseURL, apiKey string, httpClient *http.Client, m *metrics.Metrics) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		metrics: m,
	}
}

// Endpoint returns the base URL of this client.
func (c *Client) Endpoint() string {
	return c.baseURL
}

type contentItem struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
	Role     string    `json:"role,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type createTaskRequest struct {
	Model   string        `json:"model"`
	Content []contentItem `json:"content"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// createTaskResponse covers both response generations: a flat object
// with id/task_id and a nested one with result.id.
type createTaskResponse struct {
	ID     string `json:"id"`
	TaskID string `json:"task_id"`
	Result *struct {
		ID string `json:"id"`
	} `json:"result,omitempty"`
	Error *apiError `json:"error,omitempty"`
}

// getTaskResponse covers the flat shape, the result.* nesting and the
// content.video_url success payload.
type getTaskResponse struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	VideoURL string    `json:"video_url,omitempty"`
	Error    *apiError `json:"error,omitempty"`
	Content  *struct {
		VideoURL string `json:"video_url"`
	} `json:"content,omitempty"`
	Result *struct {
		Status  string    `json:"status"`
		Error   *apiError `json:"error,omitempty"`
		Content *struct {
			VideoURL string `json:"video_url"`
		} `json:"content,omitempty"`
	} `json:"result,omitempty"`
}

// CreateTask submits a generation task. The content list is one text
// segment followed by one reference-image entry per URL; order is
// preserved because the first URL is the subject image.
func (c *Client) CreateTask(ctx context.Context, model, prompt string, referenceImageURLs []string) (taskID string, err error) {
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordProviderRequest(c.baseURL, "create_task", err)
		}
	}()

	content := make([]contentItem, 0, len(referenceImageURLs)+1)
	content = append(content, contentItem{Type: "text", Text: prompt})
	for _, u := range referenceImageURLs {
		content = append(content, contentItem{
			Type:     "image_url",
			ImageURL: &imageRef{URL: u},
			Role:     roleReference,
		})
	}

	body, err := json.Marshal(&createTaskRequest{Model: model, Content: content})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createTaskPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.statusError("create task", resp.StatusCode, respBody)
	}

	var taskResp createTaskResponse
	if err := json.Unmarshal(respBody, &taskResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if taskResp.Error != nil {
		return "", c.messageError("create task", taskResp.Error)
	}

	// Checked in documented precedence order: id, task_id, result.id.
	switch {
	case taskResp.ID != "":
		return taskResp.ID, nil
	case taskResp.TaskID != "":
		return taskResp.TaskID, nil
	case taskResp.Result != nil && taskResp.Result.ID != "":
		return taskResp.Result.ID, nil
	}
	return "", fmt.Errorf("no task id returned")
}

// GetTask fetches the task and normalizes it into a TaskView.
func (c *Client) GetTask(ctx context.Context, taskID string) (view *generation.TaskView, err error) {
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordProviderRequest(c.baseURL, "get_task", err)
		}
	}()

	url := fmt.Sprintf("%s%s/%s", c.baseURL, createTaskPath, taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("get task", resp.StatusCode, respBody)
	}

	var taskResp getTaskResponse
	if err := json.Unmarshal(respBody, &taskResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return normalize(&taskResp), nil
}

// normalize collapses the flat and result.* response shapes into the
// one canonical view all call sites consume.
func normalize(resp *getTaskResponse) *generation.TaskView {
	status := resp.Status
	if status == "" && resp.Result != nil {
		status = resp.Result.Status
	}

	videoURL := ""
	switch {
	case resp.Content != nil && resp.Content.VideoURL != "":
		videoURL = resp.Content.VideoURL
	case resp.Result != nil && resp.Result.Content != nil && resp.Result.Content.VideoURL != "":
		videoURL = resp.Result.Content.VideoURL
	case resp.VideoURL != "":
		videoURL = resp.VideoURL
	}

	detail := ""
	switch {
	case resp.Error != nil:
		detail = resp.Error.Message
	case resp.Result != nil && resp.Result.Error != nil:
		detail = resp.Result.Error.Message
	}

	return &generation.TaskView{
		Status:   generation.ParseStatus(status),
		VideoURL: videoURL,
		Detail:   detail,
	}
}

// statusError builds an error for a non-2xx response, classifying
// authentication rejections so callers can report them distinctly.
func (c *Client) statusError(op string, status int, body []byte) error {
	detail := truncate(string(body), 300)
	if status == http.StatusUnauthorized || strings.Contains(detail, "401") || strings.Contains(detail, "Unauthorized") {
		return fmt.Errorf("%s: HTTP %d: %s: %w", op, status, detail, apperrors.ErrUnauthorized)
	}
	return fmt.Errorf("%s: HTTP %d: %s", op, status, detail)
}

func (c *Client) messageError(op string, apiErr *apiError) error {
	if strings.Contains(apiErr.Message, "401") || strings.Contains(apiErr.Message, "Unauthorized") || apiErr.Code == "AuthenticationError" {
		return fmt.Errorf("%s: %s: %w", op, apiErr.Message, apperrors.ErrUnauthorized)
	}
	return fmt.Errorf("%s: %s", op, apiErr.Message)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
