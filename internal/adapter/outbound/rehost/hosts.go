package rehost

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelforge/server/internal/module/generation"
)

// Default host endpoints.
const (
	catboxDefaultURL     = "https://catbox.moe/user/api.php"
	transferShDefaultURL = "https://transfer.sh"
	zeroXZeroDefaultURL  = "https://0x0.st"
)

// DefaultUploaders returns the fixed priority order:
// catbox → transfer.sh → 0x0.
func DefaultUploaders(client *http.Client) []Uploader {
	return []Uploader{
		NewCatbox(client, ""),
		NewTransferSh(client, ""),
		NewZeroXZero(client, ""),
	}
}

// checkBody validates a host response: 200/201 and a body that starts
// with a URI scheme. Anything else is a soft failure for the host.
func checkBody(host string, status int, body []byte) (string, error) {
	if status != http.StatusOK && status != http.StatusCreated {
		return "", fmt.Errorf("%s: HTTP %d", host, status)
	}
	url := strings.TrimSpace(string(body))
	if !strings.HasPrefix(url, "http") {
		return "", fmt.Errorf("%s: unexpected response body %q", host, truncateBody(url))
	}
	return url, nil
}

func truncateBody(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}

// multipartBody buffers the file into a multipart form. Uploads are
// capped at the server's max upload size, so buffering is fine.
func multipartBody(localPath, fileField string, extraFields map[string]string) (*bytes.Buffer, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range extraFields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("write field: %w", err)
		}
	}
	part, err := w.CreateFormFile(fileField, filepath.Base(localPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy file: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close writer: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// Catbox uploads via multipart POST with a fileupload request type.
type Catbox struct {
	client *http.Client
	url    string
}

// NewCatbox creates a catbox.moe uploader. An empty url uses the
// public endpoint.
func NewCatbox(client *http.Client, url string) *Catbox {
	if url == "" {
		url = catboxDefaultURL
	}
	return &Catbox{client: client, url: url}
}

// Host returns the host identifier.
func (c *Catbox) Host() generation.RehostHost {
	return generation.HostCatbox
}

// Upload sends the file and returns the public URL.
func (c *Catbox) Upload(ctx context.Context, localPath string) (string, error) {
	body, contentType, err := multipartBody(localPath, "fileToUpload", map[string]string{
		"reqtype": "fileupload",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("catbox: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("catbox: read response: %w", err)
	}
	return checkBody("catbox", resp.StatusCode, respBody)
}

// TransferSh uploads via raw PUT to a path derived from the filename.
type TransferSh struct {
	client *http.Client
	url    string
}

// NewTransferSh creates a transfer.sh-style uploader.
func NewTransferSh(client *http.Client, url string) *TransferSh {
	if url == "" {
		url = transferShDefaultURL
	}
	return &TransferSh{client: client, url: strings.TrimRight(url, "/")}
}

// Host returns the host identifier.
func (t *TransferSh) Host() generation.RehostHost {
	return generation.HostTransferSh
}

// Upload PUTs the file body to /{filename} and returns the public URL.
func (t *TransferSh) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	url := t.url + "/" + filepath.Base(localPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transfer.sh: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("transfer.sh: read response: %w", err)
	}
	return checkBody("transfer.sh", resp.StatusCode, respBody)
}

// ZeroXZero uploads via multipart POST with a single file field. Last
// resort host.
type ZeroXZero struct {
	client *http.Client
	url    string
}

// NewZeroXZero creates a 0x0.st uploader.
func NewZeroXZero(client *http.Client, url string) *ZeroXZero {
	if url == "" {
		url = zeroXZeroDefaultURL
	}
	return &ZeroXZero{client: client, url: url}
}

// Host returns the host identifier.
func (z *ZeroXZero) Host() generation.RehostHost {
	return generation.HostZeroXZero
}

// Upload sends the file and returns the public URL.
func (z *ZeroXZero) Upload(ctx context.Context, localPath string) (string, error) {
	body, contentType, err := multipartBody(localPath, "file", nil)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.url, body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := z.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("0x0: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("0x0: read response: %w", err)
	}
	return checkBody("0x0", resp.StatusCode, respBody)
}
