package http

import (
	"image/png"
	"net/http"
	"strconv"
	"time"

	"framewire/internal/core/domain"
	"framewire/internal/core/ports"
	"framewire/internal/core/services"
	"framewire/internal/infrastructure/codec"
	"framewire/internal/infrastructure/media"
	"framewire/internal/infrastructure/monitoring"
	"framewire/pkg/errors"
	"framewire/pkg/logger"
	"framewire/pkg/validation"

	"github.com/gin-gonic/gin"
)

const (
	previewQuality     = 85
	defaultReportLimit = 20
	maxReportLimit     = 200
)

// ControlHandler exposes the session manager, the latest decoded frame and the
// stored session reports over HTTP.
type ControlHandler struct {
	manager *services.SessionManager
	preview *media.LatestFrameSink
	codec   ports.FrameCodec
	reports ports.ReportRepository
	health  *monitoring.HealthChecker
	started time.Time
}

func NewControlHandler(
	manager *services.SessionManager,
	preview *media.LatestFrameSink,
	frameCodec ports.FrameCodec,
	reports ports.ReportRepository,
	health *monitoring.HealthChecker,
) *ControlHandler {
	return &ControlHandler{
		manager: manager,
		preview: preview,
		codec:   frameCodec,
		reports: reports,
		health:  health,
		started: time.Now(),
	}
}

type StartSessionRequest struct {
	PeerAddress string `json:"peer_address" binding:"max=255"`
}

func (h *ControlHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.started).String(),
	})
}

func (h *ControlHandler) Ready(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *ControlHandler) GetSession(c *gin.Context) {
	session := h.manager.Current()
	if session == nil {
		c.JSON(http.StatusOK, gin.H{"state": domain.StateIdle.String()})
		return
	}
	c.JSON(http.StatusOK, session.Info())
}

func (h *ControlHandler) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errors.NewInvalidInputError("invalid request format"))
			return
		}
	}
	if req.PeerAddress != "" {
		if err := validation.ValidatePeerAddress(req.PeerAddress); err != nil {
			c.Error(errors.NewInvalidInputError(err.Error()))
			return
		}
	}

	session, err := h.manager.Start(c.Request.Context(), req.PeerAddress)
	if err != nil {
		c.Error(err)
		return
	}
	tagSession(c, session.ID())
	c.JSON(http.StatusCreated, session.Info())
}

func (h *ControlHandler) StopSession(c *gin.Context) {
	report, err := h.manager.Stop(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	tagSession(c, report.SessionID)
	c.JSON(http.StatusOK, report)
}

// tagSession puts the session id on the request context for the request log.
func tagSession(c *gin.Context, id domain.SessionID) {
	c.Request = c.Request.WithContext(logger.WithSessionID(c.Request.Context(), string(id)))
}

// LatestFrame serves the most recent decoded frame as JPEG, or PNG with ?format=png.
func (h *ControlHandler) LatestFrame(c *gin.Context) {
	frame := h.preview.Latest()
	if frame == nil {
		c.Error(errors.NewNotFoundError("frame"))
		return
	}

	c.Header("Cache-Control", "no-store")
	if c.Query("format") == "png" {
		img, err := codec.ToImage(frame)
		if err != nil {
			c.Error(err)
			return
		}
		c.Status(http.StatusOK)
		c.Header("Content-Type", "image/png")
		if err := png.Encode(c.Writer, img); err != nil {
			c.Error(err)
		}
		return
	}

	payload, err := h.codec.Encode(frame, previewQuality)
	if err != nil {
		c.Error(err)
		return
	}
	c.Data(http.StatusOK, "image/jpeg", payload)
}

func (h *ControlHandler) ListReports(c *gin.Context) {
	limit := defaultReportLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxReportLimit {
			c.Error(errors.NewInvalidInputError("limit must be between 1 and 200"))
			return
		}
		limit = n
	}

	reports, err := h.reports.List(c.Request.Context(), limit)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (h *ControlHandler) GetReport(c *gin.Context) {
	id := c.Param("id")
	if err := validation.ValidateSessionID(id); err != nil {
		c.Error(errors.NewInvalidInputError(err.Error()))
		return
	}

	report, err := h.reports.GetByID(c.Request.Context(), domain.SessionID(id))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}
