package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grigta/covid-tracker/pkg/logger"
	"github.com/grigta/covid-tracker/pkg/middleware"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/models"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/render"
	"github.com/grigta/covid-tracker/services/dashboard-service/internal/service"
)

// SessionHeader lets API clients without cookies pick a session explicitly.
const SessionHeader = middleware.SessionIDHeader

const streamKeepAlive = 25 * time.Second

// Sessions resolves a session id to its controller.
type Sessions interface {
	Get(ctx context.Context, id string) (*service.Controller, error)
	Count() int
}

type Options struct {
	TileURL     string
	HistoryDays int
	CookieName  string
	CookieTTL   time.Duration
}

type DashboardHandler struct {
	sessions Sessions
	history  service.HistorySource
	opts     Options
	logger   logger.Logger
}

func NewDashboardHandler(sessions Sessions, history service.HistorySource, opts Options, log logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		sessions: sessions,
		history:  history,
		opts:     opts,
		logger:   log.WithField("component", "http"),
	}
}

// sessionID returns the caller's session id, issuing a cookie for new visitors.
func (h *DashboardHandler) sessionID(c *gin.Context) string {
	if id := c.GetHeader(SessionHeader); id != "" {
		return id
	}
	if id, err := c.Cookie(h.opts.CookieName); err == nil && id != "" {
		return id
	}

	id := uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.opts.CookieName, id, int(h.opts.CookieTTL.Seconds()), "/", "", false, true)
	return id
}

func (h *DashboardHandler) controller(c *gin.Context) (*service.Controller, bool) {
	ctrl, err := h.sessions.Get(c.Request.Context(), h.sessionID(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to resolve session")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return ctrl, true
}

// Index renders the dashboard page.
func (h *DashboardHandler) Index(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	c.HTML(http.StatusOK, render.DashboardTemplate, render.NewDashboard(ctrl.Snapshot(), h.opts.TileURL))
}

// SelectRegionForm handles the region dropdown and redirects back to the page.
// Upstream failures show up in the page's error banner.
func (h *DashboardHandler) SelectRegionForm(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	err := ctrl.SelectRegion(c.Request.Context(), c.PostForm("region"))
	if errors.Is(err, models.ErrInvalidRegion) {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

func (h *DashboardHandler) SelectCategoryForm(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	if err := ctrl.SelectCategory(models.Category(c.PostForm("category"))); err != nil {
		c.String(http.StatusBadRequest, err.Error())
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// HistoryChart renders the line graph page embedded by the dashboard.
func (h *DashboardHandler) HistoryChart(c *gin.Context) {
	series, ok := h.loadSeries(c)
	if !ok {
		return
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := render.RenderLineGraph(c.Writer, series); err != nil {
		h.logger.WithError(err).Error("Failed to render history chart")
	}
}

// GetState returns the session's view state.
func (h *DashboardHandler) GetState(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

type selectRegionRequest struct {
	Region string `json:"region" binding:"required"`
}

func (h *DashboardHandler) SelectRegion(c *gin.Context) {
	var req selectRegionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "region is required"})
		return
	}

	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	err := ctrl.SelectRegion(c.Request.Context(), req.Region)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, ctrl.Snapshot())
	case errors.Is(err, models.ErrInvalidRegion):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrSuperseded):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": ctrl.Snapshot()})
	default:
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "state": ctrl.Snapshot()})
	}
}

type selectCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

func (h *DashboardHandler) SelectCategory(c *gin.Context) {
	var req selectCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	if err := ctrl.SelectCategory(models.Category(req.Category)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (h *DashboardHandler) GetCountries(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	state := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"countries": state.Countries,
		"table":     render.Table(state.TableData),
	})
}

func (h *DashboardHandler) GetMap(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, render.BuildMapView(ctrl.Snapshot(), h.opts.TileURL))
}

func (h *DashboardHandler) GetHistory(c *gin.Context) {
	series, ok := h.loadSeries(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, series)
}

// StreamState pushes the session state as server-sent events: once on
// connect, then after every change.
func (h *DashboardHandler) StreamState(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	changed := make(chan struct{}, 1)
	unsubscribe := ctrl.Subscribe(func(models.ViewState) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.SSEvent("state", ctrl.Snapshot())
	c.Writer.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-changed:
			c.SSEvent("state", ctrl.Snapshot())
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
			return true
		}
	})
}

func (h *DashboardHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "dashboard-service",
		"sessions":  h.sessions.Count(),
	})
}

// loadSeries fetches history for ?category= (default cases) and ?lastdays=.
func (h *DashboardHandler) loadSeries(c *gin.Context) (models.HistoricalSeries, bool) {
	category, err := models.ParseCategory(c.DefaultQuery("category", string(models.CategoryCases)))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return models.HistoricalSeries{}, false
	}

	days := h.opts.HistoryDays
	if raw := c.Query("lastdays"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "lastdays must be an integer of at least 2"})
			return models.HistoricalSeries{}, false
		}
		days = parsed
	}

	history, err := h.history.GetHistorical(c.Request.Context(), days)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load history")
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return models.HistoricalSeries{}, false
	}

	series, err := service.DailySeries(history, category)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return models.HistoricalSeries{}, false
	}
	return series, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNetwork), errors.Is(err, models.ErrParse):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrInvalidCategory), errors.Is(err, models.ErrInvalidRegion):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
