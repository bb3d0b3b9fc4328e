package generationhttp

import (
	"strings"

	"github.com/reelforge/server/internal/module/generation"
)

// GenerateRequest is the JSON body for generation submissions. Omitted
// numeric fields fall back to server defaults; seed and temperature are
// pointers so that zero is distinguishable from absent.
type GenerateRequest struct {
	Prompt      string   `json:"prompt"`
	ImageURLs   []string `json:"image_urls" binding:"required,min=1"`
	AspectRatio string   `json:"aspect_ratio"`
	Duration    int      `json:"duration"`
	FPS         int      `json:"fps"`
	Watermark   bool     `json:"watermark"`
	Seed        *int     `json:"seed"`
	Temperature *float64 `json:"temperature"`

	// APIKey and BaseURL override the server-wide provider settings for
	// this call only.
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// ToRequest converts the transport shape into the domain request.
func (r *GenerateRequest) ToRequest() *generation.Request {
	req := &generation.Request{
		Prompt:             r.Prompt,
		AspectRatio:        r.AspectRatio,
		DurationSeconds:    r.Duration,
		FrameRate:          r.FPS,
		Watermark:          r.Watermark,
		Seed:               -1,
		Temperature:        -1,
		ReferenceImageURLs: r.ImageURLs,
	}
	if r.Seed != nil {
		req.Seed = *r.Seed
	}
	if r.Temperature != nil {
		req.Temperature = *r.Temperature
	}
	return req
}

// UploadResult reports the outcome for one uploaded file.
type UploadResult struct {
	Field    string `json:"field"`
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Host     string `json:"host,omitempty"`
	Error    string `json:"error,omitempty"`
}

// UploadResponse is the response body for the uploads endpoint. URLs
// repeats the successful URLs in upload order so clients can pass it
// straight to the generation endpoint.
type UploadResponse struct {
	Results []UploadResult `json:"results"`
	URLs    []string       `json:"urls"`
}

var allowedImageExts = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"bmp":  true,
	"webp": true,
}

// allowedImage reports whether the filename carries an accepted image
// extension.
func allowedImage(filename string) bool {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return false
	}
	return allowedImageExts[strings.ToLower(filename[i+1:])]
}
