package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/edirooss/livesrc/internal/service"
)

const (
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeM3U  = "application/vnd.apple.mpegurl"
)

// LiveHandler exposes the live-source session over HTTP.
//
// Supported operations:
//   - POST /tv/clear              → empty catalog and tasks
//   - POST /tv/single             → probe one URL (JSON body)
//   - POST /tv/batch              → index-ranged batch check (task)
//   - POST /tv/update/txt|m3u     → load remote sources and validate (task)
//   - POST /tv/chr/txt            → validate posted grouped text (task)
//   - GET  /tv/show/txt|m3u       → current catalog
//   - POST /tv/cvt/txt|m3u        → convert posted text
//   - POST /tv/sort/txt|m3u       → reorder posted text
//   - POST /tv/mgr/txt?top_n=     → keep mirrors of the top hosts
//
// Notes:
//   - Playlist bodies are plain text; request descriptions are JSON.
//   - Task endpoints answer 202 with the task id; progress is read from /tasks.
type LiveHandler struct {
	log *zap.Logger
	svc *service.LiveService
}

// NewLiveHandler constructs a LiveHandler.
func NewLiveHandler(log *zap.Logger, svc *service.LiveService) *LiveHandler {
	return &LiveHandler{log: log.Named("live"), svc: svc}
}

// Clear handles POST /tv/clear.
func (h *LiveHandler) Clear(c *gin.Context) {
	h.svc.Clear()
	c.Data(http.StatusOK, contentTypeText, []byte("data cleared"))
}

// Single handles POST /tv/single. An unplayable URL yields an empty body.
func (h *LiveHandler) Single(c *gin.Context) {
	var req service.SingleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}
	body, err := h.svc.Single(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeText, []byte(body))
}

// Batch handles POST /tv/batch.
func (h *LiveHandler) Batch(c *gin.Context) {
	var req service.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}
	id, err := h.svc.Batch(req)
	if err != nil {
		abort(c, err)
		return
	}
	accepted(c, id)
}

// UpdateTxt handles POST /tv/update/txt.
func (h *LiveHandler) UpdateTxt(c *gin.Context) {
	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}
	id, err := h.svc.UpdateTxt(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}
	accepted(c, id)
}

// UpdateM3U handles POST /tv/update/m3u.
func (h *LiveHandler) UpdateM3U(c *gin.Context) {
	var req service.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}
	id, err := h.svc.UpdateM3U(req)
	if err != nil {
		abort(c, err)
		return
	}
	accepted(c, id)
}

// CheckPosted handles POST /tv/chr/txt?is_clear=.
func (h *LiveHandler) CheckPosted(c *gin.Context) {
	text, ok := h.readText(c)
	if !ok {
		return
	}
	isClear, err := strconv.ParseBool(c.DefaultQuery("is_clear", "true"))
	if err != nil {
		abort(c, fmt.Errorf("%w: is_clear: %v", service.ErrInvalidRequest, err))
		return
	}
	id, err := h.svc.CheckPosted(text, isClear)
	if err != nil {
		abort(c, err)
		return
	}
	accepted(c, id)
}

// ShowTxt handles GET /tv/show/txt.
func (h *LiveHandler) ShowTxt(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeText, []byte(h.svc.Show(service.FormatTxt)))
}

// ShowM3U handles GET /tv/show/m3u.
func (h *LiveHandler) ShowM3U(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeM3U, []byte(h.svc.Show(service.FormatM3U)))
}

func (h *LiveHandler) ConvertTxt(c *gin.Context) { h.transform(c, h.svc.ConvertTxt) }
func (h *LiveHandler) ConvertM3U(c *gin.Context) { h.transform(c, h.svc.ConvertM3U) }
func (h *LiveHandler) SortTxt(c *gin.Context)    { h.transform(c, h.svc.SortTxt) }
func (h *LiveHandler) SortM3U(c *gin.Context)    { h.transform(c, h.svc.SortM3U) }

// Merge handles POST /tv/mgr/txt?top_n=.
func (h *LiveHandler) Merge(c *gin.Context) {
	topN, err := strconv.Atoi(c.DefaultQuery("top_n", "3"))
	if err != nil {
		abort(c, fmt.Errorf("%w: top_n: %v", service.ErrInvalidRequest, err))
		return
	}
	h.transform(c, func(text string) (string, error) { return h.svc.Merge(text, topN) })
}

func (h *LiveHandler) transform(c *gin.Context, fn func(string) (string, error)) {
	text, ok := h.readText(c)
	if !ok {
		return
	}
	out, err := fn(text)
	if err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeText, []byte(out))
}

func (h *LiveHandler) readText(c *gin.Context) (string, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abort(c, fmt.Errorf("%w: read body: %v", service.ErrInvalidRequest, err))
		return "", false
	}
	return string(body), true
}
