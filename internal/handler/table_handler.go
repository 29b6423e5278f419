package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/db"
	"github.com/petallog/internal/locale"
	"github.com/petallog/internal/progress"
)

type tableResponse struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type tableRequest struct {
	Title string `json:"title"`
}

func newTableResponse(table db.TrackerTable) tableResponse {
	return tableResponse{ID: table.ID, Title: table.Title, CreatedAt: table.CreatedAt}
}

// ListTables 返回当前用户的进度表，首次访问时自动创建默认表
func (a *API) ListTables(c *gin.Context) {
	ctx := c.Request.Context()
	userID := currentUserID(c)
	title := locale.Message(a.requestLocale(c).Language, locale.DefaultTableTitle)

	if _, err := a.tables.EnsureDefault(ctx, userID, title); err != nil {
		a.handleTrackerError(c, err)
		return
	}
	tables, err := a.tables.ListByOwner(ctx, userID)
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}

	items := make([]tableResponse, 0, len(tables))
	for _, table := range tables {
		items = append(items, newTableResponse(table))
	}
	c.JSON(http.StatusOK, gin.H{"tables": items})
}

// CreateTable 新建进度表
func (a *API) CreateTable(c *gin.Context) {
	var req tableRequest
	if !a.bindJSON(c, &req) {
		return
	}
	table, err := a.tables.Create(c.Request.Context(), currentUserID(c), req.Title)
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTableResponse(*table))
}

// ownedTable 解析 :id 并确认进度表属于当前用户
func (a *API) ownedTable(c *gin.Context) (*db.TrackerTable, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidRequest)
		return nil, false
	}
	table, err := a.tables.GetOwned(c.Request.Context(), id, currentUserID(c))
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			a.respondMessage(c, http.StatusNotFound, locale.ErrTableNotFound)
			return nil, false
		}
		a.handleTrackerError(c, err)
		return nil, false
	}
	return table, true
}

// trackerFor 返回当前会话在该表上的 tracker
func (a *API) trackerFor(c *gin.Context, tableID uint) (*tracker, bool) {
	t, err := a.trackers.get(currentTrackerID(c), tableID)
	if err != nil {
		a.handleTrackerError(c, err)
		return nil, false
	}
	return t, true
}
