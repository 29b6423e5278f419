package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/db"
	"github.com/petallog/internal/locale"
	"github.com/petallog/internal/service"
)

type categoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Max         *int   `json:"max"`
	Color       string `json:"color"`
	Position    *int   `json:"position"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		Title:       r.Title,
		Description: r.Description,
		Max:         r.Max,
		Color:       strings.TrimSpace(r.Color),
		Position:    r.Position,
	}
}

type categoryResponse struct {
	ID              uint   `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"description_html"`
	Max             *int   `json:"max"`
	Color           string `json:"color"`
	Position        int    `json:"position"`
}

type reorderRequest struct {
	IDs []uint `json:"ids"`
}

func newCategoryResponse(category db.Category) categoryResponse {
	rendered, err := service.RenderMarkdown(category.Description)
	if err != nil {
		rendered = ""
	}
	return categoryResponse{
		ID:              category.ID,
		Title:           category.Title,
		Description:     category.Description,
		DescriptionHTML: rendered,
		Max:             category.Max,
		Color:           category.Color,
		Position:        category.Position,
	}
}

// ListCategories 返回表内分类
func (a *API) ListCategories(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	categories, err := a.categories.ListCategories(c.Request.Context(), table.ID)
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}

	items := make([]categoryResponse, 0, len(categories))
	for _, category := range categories {
		items = append(items, newCategoryResponse(category))
	}
	c.JSON(http.StatusOK, gin.H{"categories": items})
}

// CreateCategory 新建分类
func (a *API) CreateCategory(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	var req categoryRequest
	if !a.bindJSON(c, &req) {
		return
	}

	category, err := a.categories.Create(c.Request.Context(), table.ID, req.input())
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	a.trackers.refreshTable(table.ID)
	c.JSON(http.StatusCreated, newCategoryResponse(*category))
}

// UpdateCategory 修改分类
func (a *API) UpdateCategory(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	id, err := parseUintParam(c, "cid")
	if err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidRequest)
		return
	}
	var req categoryRequest
	if !a.bindJSON(c, &req) {
		return
	}

	category, err := a.categories.Update(c.Request.Context(), table.ID, id, req.input())
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	a.trackers.refreshTable(table.ID)
	c.JSON(http.StatusOK, newCategoryResponse(*category))
}

// DeleteCategory 删除分类，历史记录保留
func (a *API) DeleteCategory(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	id, err := parseUintParam(c, "cid")
	if err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidRequest)
		return
	}

	if err := a.categories.Delete(c.Request.Context(), table.ID, id); err != nil {
		a.handleTrackerError(c, err)
		return
	}
	a.trackers.refreshTable(table.ID)
	c.Status(http.StatusNoContent)
}

// ReorderCategories 按给定顺序重排分类
func (a *API) ReorderCategories(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	var req reorderRequest
	if !a.bindJSON(c, &req) {
		return
	}

	if err := a.categories.Reorder(c.Request.Context(), table.ID, req.IDs); err != nil {
		a.handleTrackerError(c, err)
		return
	}
	a.trackers.refreshTable(table.ID)
	c.Status(http.StatusNoContent)
}
