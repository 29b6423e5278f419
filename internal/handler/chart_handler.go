package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/locale"
	"github.com/petallog/internal/petal"
	"github.com/petallog/internal/service"
)

type chartClickRequest struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size int     `json:"size"`
}

// chartOptions 组装渲染参数，并把弹簧推进到当前时刻、对齐到最新目标
func (a *API) chartOptions(c *gin.Context, t *tracker, size int) (petal.Options, bool) {
	settings, err := a.settings.Get(c.Request.Context())
	if err != nil {
		a.handleTrackerError(c, err)
		return petal.Options{}, false
	}
	if size <= 0 {
		size = settings.ChartSize
	}
	size = service.ClampChartSize(size)

	values := t.coordinator.Snapshot().Values
	layout := petal.NewLayout(values, float64(size), settings.PetalInnerRatio)
	t.animator.Tick(a.now())
	t.animator.Sync(petal.Targets(layout))

	return petal.Options{
		Values:      values,
		Size:        size,
		InnerRatio:  settings.PetalInnerRatio,
		Placeholder: locale.Message(a.requestLocale(c).Language, locale.ChartPlaceholder),
		Animator:    t.animator,
	}, true
}

func querySize(c *gin.Context) int {
	size, err := strconv.Atoi(strings.TrimSpace(c.Query("size")))
	if err != nil {
		return 0
	}
	return size
}

// GetChartSVG 输出带弹簧关键帧的 SVG 花瓣图
func (a *API) GetChartSVG(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	t, ok := a.trackerFor(c, table.ID)
	if !ok {
		return
	}
	opts, ok := a.chartOptions(c, t, querySize(c))
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := t.renderer.RenderSVG(&buf, opts); err != nil {
		a.handleTrackerError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/svg+xml; charset=utf-8", buf.Bytes())
}

// GetChartPNG 输出当前弹簧位置的 PNG 快照
func (a *API) GetChartPNG(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	t, ok := a.trackerFor(c, table.ID)
	if !ok {
		return
	}
	opts, ok := a.chartOptions(c, t, querySize(c))
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := t.renderer.RenderPNG(&buf, opts); err != nil {
		a.handleTrackerError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// ClickPetal 选中花瓣
func (a *API) ClickPetal(c *gin.Context) {
	t, categoryID, ok := a.petalTarget(c)
	if !ok {
		return
	}
	t.renderer.Click(categoryID)
	c.JSON(http.StatusOK, gin.H{"selected": categoryID})
}

// DoubleClickPetal 选中花瓣并返回待编辑的分类
func (a *API) DoubleClickPetal(c *gin.Context) {
	t, categoryID, ok := a.petalTarget(c)
	if !ok {
		return
	}
	t.renderer.DoubleClick(categoryID)

	editing := t.takeEditing()
	category, err := a.categories.Get(c.Request.Context(), t.coordinator.TableID(), editing)
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": categoryID, "edit": newCategoryResponse(*category)})
}

// ClickChart 按画布坐标命中测试，点到空白处取消选中
func (a *API) ClickChart(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	var req chartClickRequest
	if !a.bindJSON(c, &req) {
		return
	}
	t, ok := a.trackerFor(c, table.ID)
	if !ok {
		return
	}
	settings, err := a.settings.Get(c.Request.Context())
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	size := req.Size
	if size <= 0 {
		size = settings.ChartSize
	}

	layout := petal.NewLayout(t.coordinator.Snapshot().Values, float64(service.ClampChartSize(size)), settings.PetalInnerRatio)
	id, hit := t.renderer.ClickAt(layout, req.X, req.Y)
	if !hit {
		c.JSON(http.StatusOK, gin.H{"selected": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": id})
}

// petalTarget 确认 :cid 在当前快照中
func (a *API) petalTarget(c *gin.Context) (*tracker, uint, bool) {
	table, ok := a.ownedTable(c)
	if !ok {
		return nil, 0, false
	}
	categoryID, err := parseUintParam(c, "cid")
	if err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidRequest)
		return nil, 0, false
	}
	t, ok := a.trackerFor(c, table.ID)
	if !ok {
		return nil, 0, false
	}
	if _, found := t.coordinator.Snapshot().Value(categoryID); !found {
		a.respondMessage(c, http.StatusNotFound, locale.ErrNotFound)
		return nil, 0, false
	}
	return t, categoryID, true
}
