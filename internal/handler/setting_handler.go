package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/service"
)

type settingsRequest struct {
	ChartSize       *int     `json:"chart_size"`
	PetalInnerRatio *float64 `json:"petal_inner_ratio"`
}

func settingsResponse(settings service.TrackerSettings) gin.H {
	return gin.H{
		"chart_size":        settings.ChartSize,
		"petal_inner_ratio": settings.PetalInnerRatio,
	}
}

// GetSettings 返回花瓣图设置
func (a *API) GetSettings(c *gin.Context) {
	settings, err := a.settings.Get(c.Request.Context())
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsResponse(settings))
}

// UpdateSettings 保存花瓣图设置
func (a *API) UpdateSettings(c *gin.Context) {
	var req settingsRequest
	if !a.bindJSON(c, &req) {
		return
	}
	settings, err := a.settings.Update(c.Request.Context(), service.TrackerSettingsInput{
		ChartSize:       req.ChartSize,
		PetalInnerRatio: req.PetalInnerRatio,
	})
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	c.JSON(http.StatusOK, settingsResponse(settings))
}
