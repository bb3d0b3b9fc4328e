package ark

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/server/internal/module/generation"
	apperrors "github.com/reelforge/server/internal/shared/errors"
)

func TestClient_CreateTask(t *testing.T) {
	t.Run("sends prompt and ordered reference images", func(t *testing.T) {
		var got createTaskRequest
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v3/contents/generations/tasks", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			json.NewEncoder(w).Encode(map[string]string{"id": "task-1"})
		}))
		defer srv.Close()

		client := NewClient(srv.URL+"/api/v3", "test-key", srv.Client(), nil)
		taskID, err := client.CreateTask(context.Background(), "video-model", "a prompt --dur 5",
			[]string{"https://files.example/first.png", "https://files.example/second.png"})

		require.NoError(t, err)
		assert.Equal(t, "task-1", taskID)
		assert.Equal(t, "video-model", got.Model)
		require.Len(t, got.Content, 3)
		assert.Equal(t, "text", got.Content[0].Type)
		assert.Equal(t, "a prompt --dur 5", got.Content[0].Text)
		assert.Equal(t, "image_url", got.Content[1].Type)
		assert.Equal(t, "https://files.example/first.png", got.Content[1].ImageURL.URL)
		assert.Equal(t, "reference_image", got.Content[1].Role)
		assert.Equal(t, "https://files.example/second.png", got.Content[2].ImageURL.URL)
	})

	t.Run("task id precedence", func(t *testing.T) {
		tests := []struct {
			name     string
			body     string
			expected string
		}{
			{"flat id wins", `{"id":"a","task_id":"b","result":{"id":"c"}}`, "a"},
			{"task_id next", `{"task_id":"b","result":{"id":"c"}}`, "b"},
			{"nested result id last", `{"result":{"id":"c"}}`, "c"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Write([]byte(tt.body))
				}))
				defer srv.Close()

				client := NewClient(srv.URL, "k", srv.Client(), nil)
				taskID, err := client.CreateTask(context.Background(), "m", "p", []string{"u"})

				require.NoError(t, err)
				assert.Equal(t, tt.expected, taskID)
			})
		}
	})

	t.Run("missing task id is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"status":"accepted"}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "k", srv.Client(), nil)
		_, err := client.CreateTask(context.Background(), "m", "p", []string{"u"})

		assert.ErrorContains(t, err, "no task id")
	})

	t.Run("401 classifies as unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "bad", srv.Client(), nil)
		_, err := client.CreateTask(context.Background(), "m", "p", []string{"u"})

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("embedded auth error classifies as unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"error":{"code":"AuthenticationError","message":"bad key"}}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "bad", srv.Client(), nil)
		_, err := client.CreateTask(context.Background(), "m", "p", []string{"u"})

		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("server error is not unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("upstream exploded"))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "k", srv.Client(), nil)
		_, err := client.CreateTask(context.Background(), "m", "p", []string{"u"})

		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.ErrorContains(t, err, "HTTP 500")
	})
}

func TestClient_GetTask(t *testing.T) {
	serve := func(body string) (*Client, func()) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/contents/generations/tasks/task-1", r.URL.Path)
			w.Write([]byte(body))
		}))
		return NewClient(srv.URL, "k", srv.Client(), nil), srv.Close
	}

	t.Run("flat shape", func(t *testing.T) {
		client, done := serve(`{"id":"task-1","status":"running","video_url":"https://cdn.example/v.mp4"}`)
		defer done()

		view, err := client.GetTask(context.Background(), "task-1")

		require.NoError(t, err)
		assert.Equal(t, generation.StatusProcessing, view.Status)
		assert.Equal(t, "https://cdn.example/v.mp4", view.VideoURL)
	})

	t.Run("nested result shape", func(t *testing.T) {
		client, done := serve(`{"result":{"status":"succeeded","content":{"video_url":"https://cdn.example/n.mp4"}}}`)
		defer done()

		view, err := client.GetTask(context.Background(), "task-1")

		require.NoError(t, err)
		assert.Equal(t, generation.StatusSucceeded, view.Status)
		assert.Equal(t, "https://cdn.example/n.mp4", view.VideoURL)
	})

	t.Run("top-level content video url wins", func(t *testing.T) {
		client, done := serve(`{"status":"succeeded","content":{"video_url":"https://cdn.example/c.mp4"},"video_url":"https://cdn.example/flat.mp4"}`)
		defer done()

		view, err := client.GetTask(context.Background(), "task-1")

		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example/c.mp4", view.VideoURL)
	})

	t.Run("failure detail from nested error", func(t *testing.T) {
		client, done := serve(`{"result":{"status":"failed","error":{"message":"content rejected"}}}`)
		defer done()

		view, err := client.GetTask(context.Background(), "task-1")

		require.NoError(t, err)
		assert.Equal(t, generation.StatusFailed, view.Status)
		assert.Equal(t, "content rejected", view.Detail)
	})

	t.Run("unknown status maps to unknown", func(t *testing.T) {
		client, done := serve(`{"status":"warming_up"}`)
		defer done()

		view, err := client.GetTask(context.Background(), "task-1")

		require.NoError(t, err)
		assert.Equal(t, generation.StatusUnknown, view.Status)
	})
}
