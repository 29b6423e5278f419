package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/locale"
	"github.com/petallog/internal/progress"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func (a *API) respondMessage(c *gin.Context, status int, key locale.Key) {
	respondError(c, status, locale.Message(a.requestLocale(c).Language, key))
}

func (a *API) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidRequest)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// handleTrackerError 把领域错误映射为 HTTP 响应
func (a *API) handleTrackerError(c *gin.Context, err error) {
	language := a.requestLocale(c).Language
	switch {
	case errors.Is(err, progress.ErrValidation):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, progress.ErrNotFound):
		respondError(c, http.StatusNotFound, locale.Message(language, locale.ErrNotFound))
	case errors.Is(err, progress.ErrPersistence):
		a.logger.WarnContext(c.Request.Context(), "store operation failed", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusServiceUnavailable, locale.Message(language, locale.ErrPersistence))
	default:
		a.logger.ErrorContext(c.Request.Context(), "unexpected error", "path", c.FullPath(), "error", err)
		respondError(c, http.StatusInternalServerError, locale.Message(language, locale.ErrInternal))
	}
}

// skippedReason 返回并发保护的原因，非并发保护错误返回空字符串
func skippedReason(language string, err error) string {
	switch {
	case errors.Is(err, progress.ErrMutationInFlight):
		return locale.Message(language, locale.SkippedInFlight)
	case errors.Is(err, progress.ErrNoChange):
		return locale.Message(language, locale.SkippedNoChange)
	case progress.IsSilent(err):
		return locale.Message(language, locale.SkippedInFlight)
	}
	return ""
}
