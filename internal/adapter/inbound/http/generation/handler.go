// Package generationhttp exposes the video generation flow over HTTP:
// image upload and rehosting, task submission, status checks and local
// artifact serving.
package generationhttp

import (
	"mime/multipart"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/reelforge/server/internal/adapter/outbound/store"
	"github.com/reelforge/server/internal/module/generation"
	"github.com/reelforge/server/internal/shared/logger"
	"github.com/reelforge/server/internal/shared/response"
)

// Handler handles generation HTTP requests.
type Handler struct {
	service *generation.Service
	store   *store.Local
	maxSize int64
	log     *logger.Logger
}

// NewHandler creates a new generation handler.
func NewHandler(service *generation.Service, st *store.Local, maxUploadBytes int64, log *logger.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &Handler{
		service: service,
		store:   st,
		maxSize: maxUploadBytes,
		log:     log,
	}
}

// RegisterRoutes registers generation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/uploads", h.Upload)
	r.POST("/generations", h.Generate)
	r.GET("/generations/:task_id", h.Status)
	r.GET("/downloads/:filename", h.Download)
}

// uploadField pairs a multipart field name with whether it may repeat.
type uploadField struct {
	name     string
	multiple bool
}

// Field order fixes the URL order in the response: the start frame is
// the subject image and must come first.
var uploadFields = []uploadField{
	{name: "start_frame"},
	{name: "reference_frames", multiple: true},
	{name: "end_frame"},
}

// Upload accepts multipart image uploads, stores them locally and
// rehosts each to a public file host. Rehosting failures are reported
// per file; the request fails only when no file was sent at all.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize)
	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "invalid multipart form: "+err.Error())
		return
	}

	var files []fileUpload
	for _, field := range uploadFields {
		headers := form.File[field.name]
		if !field.multiple && len(headers) > 1 {
			headers = headers[:1]
		}
		for _, fh := range headers {
			files = append(files, fileUpload{field: field.name, header: fh})
		}
	}
	if len(files) == 0 {
		response.BadRequest(c, "no files uploaded")
		return
	}

	resp := UploadResponse{URLs: []string{}}
	for _, f := range files {
		resp.Results = append(resp.Results, h.rehostOne(c, f))
	}
	for _, r := range resp.Results {
		if r.URL != "" {
			resp.URLs = append(resp.URLs, r.URL)
		}
	}

	// Partial failures are reported per file; only losing every file is
	// an error for the whole request.
	if len(resp.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "no valid images uploaded",
			"results": resp.Results,
		})
		return
	}
	c.JSON(http.StatusOK, resp)
}

type fileUpload struct {
	field  string
	header *multipart.FileHeader
}

func (h *Handler) rehostOne(c *gin.Context, f fileUpload) UploadResult {
	result := UploadResult{Field: f.field, Filename: f.header.Filename}

	if !allowedImage(f.header.Filename) {
		result.Error = "unsupported file type"
		return result
	}

	localPath, err := h.store.SaveUpload(f.header, f.field)
	if err != nil {
		h.log.Error("save upload failed",
			logger.String("filename", f.header.Filename),
			logger.Err(err),
		)
		result.Error = "failed to store file"
		return result
	}

	asset, err := h.service.Rehost(c.Request.Context(), localPath)
	if err != nil {
		result.Error = "all public hosts failed"
		return result
	}
	result.URL = asset.PublicURL
	result.Host = string(asset.Host)
	return result
}

// Generate handles synchronous generation requests: submit, poll to a
// terminal state, download the video. The response carries the local
// video filename for the downloads endpoint.
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req.ToRequest(), generation.CallOptions{
		APIKey:  req.APIKey,
		BaseURL: req.BaseURL,
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Status handles status check requests. A task that is still running
// reports "processing"; overrides come from query parameters or the
// X-Api-Key header since GET requests carry no body.
func (h *Handler) Status(c *gin.Context) {
	apiKey := c.Query("api_key")
	if apiKey == "" {
		apiKey = c.GetHeader("X-Api-Key")
	}

	result, err := h.service.Status(c.Request.Context(), c.Param("task_id"), generation.CallOptions{
		APIKey:  apiKey,
		BaseURL: c.Query("base_url"),
	})
	if err != nil {
		response.FromError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Download serves a materialized video file.
func (h *Handler) Download(c *gin.Context) {
	path := h.store.OutputPath(c.Param("filename"))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		response.NotFound(c, "video not found")
		return
	}
	c.FileAttachment(path, store.SanitizeFilename(c.Param("filename")))
}
