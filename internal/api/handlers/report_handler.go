package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"geosafe/internal/api/middleware"
	"geosafe/internal/domain/entities"
	"geosafe/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
	votes   *services.VoteLedger
}

func NewReportHandler(reports *services.ReportService, votes *services.VoteLedger) *ReportHandler {
	return &ReportHandler{reports: reports, votes: votes}
}

type LocationRequest struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lng *float64 `json:"lng" binding:"required"`
}

type CreateReportRequest struct {
	Title       string          `json:"title" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Location    LocationRequest `json:"location" binding:"required"`
	EvidenceURL string          `json:"evidenceUrl" binding:"omitempty,url"`
}

// Create handles POST /api/v1/reports. Guests may submit.
func (h *ReportHandler) Create(c *gin.Context) {
	var req CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reports.Create(c.Request.Context(), services.CreateReportInput{
		Title:        req.Title,
		Category:     req.Category,
		Location:     entities.NewLocation(*req.Location.Lat, *req.Location.Lng),
		ReporterID:   middleware.GetUserID(c),
		ReporterName: middleware.GetUserName(c),
		EvidenceURL:  req.EvidenceURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

// List handles GET /api/v1/reports.
//
// Query: category and status may repeat. mine=true restricts to the
// caller's own reports. since is "all", "24h", "7d" or any Go duration.
// limit caps the result.
func (h *ReportHandler) List(c *gin.Context) {
	var filter entities.ReportFilter
	for _, raw := range c.QueryArray("category") {
		cat, err := entities.ParseCategory(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.Categories = append(filter.Categories, cat)
	}
	for _, raw := range c.QueryArray("status") {
		st, err := entities.ParseStatus(raw)
		if err != nil {
			respondError(c, err)
			return
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	if mine, _ := strconv.ParseBool(c.Query("mine")); mine {
		userID := middleware.GetUserID(c)
		if userID == entities.GuestReporter {
			respondError(c, services.ErrNotAuthenticated)
			return
		}
		filter.ReporterID = userID
	}
	if raw := c.Query("since"); raw != "" && raw != "all" {
		window, err := parseWindow(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be all, 24h, 7d or a duration"})
			return
		}
		filter.Since = time.Now().UTC().Add(-window)
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		filter.Limit = limit
	}

	reports, err := h.reports.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if reports == nil {
		reports = []*entities.Report{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// Get handles GET /api/v1/reports/:id
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

type CastVoteRequest struct {
	VoteType string `json:"voteType" binding:"required"`
}

// CastVote handles POST /api/v1/reports/:id/votes
func (h *ReportHandler) CastVote(c *gin.Context) {
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.votes.CastVote(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.VoteType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

// MyVote handles GET /api/v1/reports/:id/votes/me
func (h *ReportHandler) MyVote(c *gin.Context) {
	vote, err := h.votes.GetVote(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vote)
}

// Verify handles POST /api/v1/reports/:id/verify (admin only).
func (h *ReportHandler) Verify(c *gin.Context) {
	report, err := h.reports.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Delete handles DELETE /api/v1/reports/:id (admin only).
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseWindow accepts time.ParseDuration input plus a whole-day "<n>d" form.
func parseWindow(raw string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(raw, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day window %q", raw)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid window %q", raw)
	}
	return d, nil
}
