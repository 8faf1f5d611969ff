package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/easydapp/jelly-packages/internal/adapters/repository"
	"github.com/easydapp/jelly-packages/internal/app/dto"
	"github.com/easydapp/jelly-packages/internal/app/usecases"
)

// maxBodyBytes bounds a posted graph.
const maxBodyBytes = 8 << 20

type handler struct {
	checker usecases.Checker
	logger  *zap.Logger
}

func newRouter(checker usecases.Checker, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	h := &handler{checker: checker, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog)

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/check", h.check)
	v1.POST("/anchors", h.anchors)
	v1.POST("/codes", h.codes)
	v1.GET("/combined/:anchor", h.combined)
	return r
}

func (h *handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	h.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("duration", time.Since(start)))
}

func (h *handler) check(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	resp, err := h.checker.Check(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if resp.Status == dto.CheckStatusRejected {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(c, status, resp)
}

func (h *handler) anchors(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	resp, err := h.checker.Anchors(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if resp.Error != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(c, status, resp)
}

func (h *handler) codes(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	resp, err := h.checker.OriginCodes(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	status := http.StatusOK
	if resp.Error != nil {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(c, status, resp)
}

func (h *handler) combined(c *gin.Context) {
	combined, err := h.checker.Combined(c.Request.Context(), c.Param("anchor"))
	if err != nil {
		h.fail(c, err)
		return
	}
	writeJSON(c, http.StatusOK, combined)
}

// bind decodes the body with the same JSON library the engine uses.
func (h *handler) bind(c *gin.Context) (*dto.CheckRequest, bool) {
	var req dto.CheckRequest
	decoder := json.NewDecoder(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return nil, false
	}
	return &req, true
}

func (h *handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, dto.ErrMissingComponents),
		errors.Is(err, dto.ErrInvalidComponents),
		errors.Is(err, dto.ErrInvalidCompiled),
		errors.Is(err, repository.ErrInvalidAnchor):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	writeJSON(c, status, gin.H{"error": err.Error()})
}

func writeJSON(c *gin.Context, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	c.Data(status, "application/json; charset=utf-8", data)
}
