package store

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/server/internal/module/generation"
	"github.com/reelforge/server/internal/shared/logger"
)

func newTestStore(t *testing.T, client *http.Client) *Local {
	t.Helper()
	dir := t.TempDir()
	st, err := New(&Config{
		UploadsDir: filepath.Join(dir, "uploads"),
		OutputsDir: filepath.Join(dir, "outputs"),
		HTTPClient: client,
		Logger:     logger.New(&logger.Config{Level: "error", Format: "json"}),
	})
	require.NoError(t, err)
	return st
}

func multipartHeader(t *testing.T, filename, content string) *multipart.FileHeader {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader := multipart.NewReader(buf, w.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["file"][0]
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"frame.png", "frame.png"},
		{"../../etc/passwd", "passwd"},
		{"my photo (1).png", "my_photo__1_.png"},
		{"..", "file"},
		{"über.png", "_ber.png"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.in))
		})
	}
}

func TestLocal_SaveUpload(t *testing.T) {
	st := newTestStore(t, http.DefaultClient)

	path, err := st.SaveUpload(multipartHeader(t, "../sneaky frame.png", "image bytes"), "start_frame")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "start_frame_"))
	assert.True(t, strings.HasSuffix(path, "_sneaky_frame.png"))
	assert.NotContains(t, filepath.Base(path), "..")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
}

func TestLocal_SaveUpload_UniqueNames(t *testing.T) {
	st := newTestStore(t, http.DefaultClient)

	a, err := st.SaveUpload(multipartHeader(t, "frame.png", "x"), "reference_frames")
	require.NoError(t, err)
	b, err := st.SaveUpload(multipartHeader(t, "frame.png", "y"), "reference_frames")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestLocal_Materialize(t *testing.T) {
	t.Run("downloads and names by task id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "video bytes")
		}))
		defer srv.Close()

		st := newTestStore(t, srv.Client())
		filename, err := st.Materialize(context.Background(), "task-42", srv.URL+"/v.mp4")

		require.NoError(t, err)
		assert.Equal(t, "task-42.mp4", filename)

		data, err := os.ReadFile(st.OutputPath(filename))
		require.NoError(t, err)
		assert.Equal(t, "video bytes", string(data))
	})

	t.Run("skips download when artifact exists", func(t *testing.T) {
		var hits atomic.Int64
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "video bytes")
		}))
		defer srv.Close()

		st := newTestStore(t, srv.Client())
		_, err := st.Materialize(context.Background(), "task-43", srv.URL+"/v.mp4")
		require.NoError(t, err)
		_, err = st.Materialize(context.Background(), "task-43", srv.URL+"/v.mp4")
		require.NoError(t, err)

		assert.Equal(t, int64(1), hits.Load())
	})

	t.Run("empty existing file is refetched", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, "video bytes")
		}))
		defer srv.Close()

		st := newTestStore(t, srv.Client())
		require.NoError(t, os.WriteFile(st.OutputPath("task-44.mp4"), nil, 0o644))

		filename, err := st.Materialize(context.Background(), "task-44", srv.URL+"/v.mp4")

		require.NoError(t, err)
		data, err := os.ReadFile(st.OutputPath(filename))
		require.NoError(t, err)
		assert.Equal(t, "video bytes", string(data))
	})

	t.Run("http error leaves no artifact", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		st := newTestStore(t, srv.Client())
		_, err := st.Materialize(context.Background(), "task-45", srv.URL+"/v.mp4")

		require.ErrorContains(t, err, "HTTP 403")
		_, statErr := os.Stat(st.OutputPath("task-45.mp4"))
		assert.True(t, os.IsNotExist(statErr))
	})
}

func TestLocal_AsArtifactStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "video bytes")
	}))
	defer srv.Close()

	var st generation.ArtifactStore = newTestStore(t, srv.Client())
	filename, err := st.Materialize(context.Background(), "task-50", srv.URL+"/v.mp4")

	require.NoError(t, err)
	assert.Equal(t, "task-50.mp4", filename)
}

func TestOutputPath_Traversal(t *testing.T) {
	st := newTestStore(t, http.DefaultClient)

	path := st.OutputPath("../../etc/passwd")

	assert.Equal(t, filepath.Join(st.OutputsDir(), "passwd"), path)
}
