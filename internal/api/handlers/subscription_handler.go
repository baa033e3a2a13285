package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geosafe/internal/api/middleware"
	"geosafe/internal/domain/entities"
	"geosafe/internal/services"
)

type SubscriptionHandler struct {
	subscriptions *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptions *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// UpdateAlertSettingsRequest is a partial update; omitted fields keep their
// stored value. clearHome removes the saved location.
type UpdateAlertSettingsRequest struct {
	Enabled   *bool            `json:"enabled"`
	RadiusKm  *float64         `json:"radiusKm"`
	Home      *LocationRequest `json:"home"`
	ClearHome bool             `json:"clearHome"`
	PushToken *string          `json:"pushToken"`
}

// Get handles GET /api/v1/me/alert-settings
func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, err := h.subscriptions.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Update handles PUT /api/v1/me/alert-settings
func (h *SubscriptionHandler) Update(c *gin.Context) {
	var req UpdateAlertSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := services.UpdateSubscriptionInput{
		Enabled:   req.Enabled,
		RadiusKm:  req.RadiusKm,
		ClearHome: req.ClearHome,
		PushToken: req.PushToken,
	}
	if req.Home != nil {
		if req.Home.Lat == nil || req.Home.Lng == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "home requires lat and lng"})
			return
		}
		home := entities.NewLocation(*req.Home.Lat, *req.Home.Lng)
		in.Home = &home
	}

	sub, err := h.subscriptions.Update(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
