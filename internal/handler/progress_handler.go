package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/petallog/internal/locale"
	"github.com/petallog/internal/petal"
	"github.com/petallog/internal/progress"
)

type windowResponse struct {
	Mode  string `json:"mode"`
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

type progressItem struct {
	ID       uint    `json:"id"`
	Title    string  `json:"title"`
	Color    string  `json:"color"`
	Max      *int    `json:"max"`
	Value    int     `json:"value"`
	Progress float64 `json:"progress"`
	InFlight bool    `json:"in_flight"`
	Selected bool    `json:"selected"`
}

type progressResponse struct {
	Window     windowResponse `json:"window"`
	GlobalMax  int            `json:"global_max"`
	Categories []progressItem `json:"categories"`
}

type deltaRequest struct {
	Delta int `json:"delta"`
}

type journalItem struct {
	ID         uint      `json:"id"`
	CategoryID *uint     `json:"category_id"`
	Text       string    `json:"text"`
	TextHTML   string    `json:"text_html"`
	Points     int       `json:"points"`
	CreatedAt  time.Time `json:"created_at"`
}

func newWindowResponse(w progress.Window) windowResponse {
	return windowResponse{
		Mode:  string(w.Mode),
		Start: w.Start.Format(progress.DateLayout),
		End:   w.LastDay().Format(progress.DateLayout),
		Label: w.String(),
	}
}

func buildProgress(t *tracker) progressResponse {
	snap := t.coordinator.Snapshot()
	selected, _ := t.renderer.Selected()
	globalMax := petal.GlobalMax(snap.Values)

	items := make([]progressItem, 0, len(snap.Values))
	for _, v := range snap.Values {
		items = append(items, progressItem{
			ID:       v.CategoryID,
			Title:    v.Title,
			Color:    v.Color,
			Max:      v.Max,
			Value:    v.Value,
			Progress: petal.Progress(v.Value, v.Max, globalMax),
			InFlight: t.coordinator.InFlight(v.CategoryID),
			Selected: v.CategoryID == selected,
		})
	}
	return progressResponse{
		Window:     newWindowResponse(snap.Window),
		GlobalMax:  globalMax,
		Categories: items,
	}
}

// queryWindow 读取 date 或 start/end 参数，三者都为空时返回 false
func (a *API) queryWindow(c *gin.Context) (progress.Window, bool, error) {
	date := strings.TrimSpace(c.Query("date"))
	start := strings.TrimSpace(c.Query("start"))
	end := strings.TrimSpace(c.Query("end"))
	if date == "" && start == "" && end == "" {
		return progress.Window{}, false, nil
	}
	w, err := progress.ParseWindow(date, start, end, a.now())
	return w, true, err
}

// GetProgress 切换或刷新当前窗口，返回各分类合计与进度
func (a *API) GetProgress(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	window, explicit, err := a.queryWindow(c)
	if err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidWindow)
		return
	}
	t, ok := a.trackerFor(c, table.ID)
	if !ok {
		return
	}

	if explicit {
		err = t.coordinator.SetWindow(window)
	} else {
		err = t.coordinator.Refresh()
	}
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	// 本次刷新可能被变更触发的后台刷新取代，等它落地再取快照
	t.coordinator.Wait()
	c.JSON(http.StatusOK, buildProgress(t))
}

// ApplyDelta 对分类施加增量；并发保护命中时返回 skipped 而不是错误
func (a *API) ApplyDelta(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	categoryID, err := parseUintParam(c, "cid")
	if err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidRequest)
		return
	}
	var req deltaRequest
	if !a.bindJSON(c, &req) {
		return
	}
	t, ok := a.trackerFor(c, table.ID)
	if !ok {
		return
	}

	err = t.renderer.AddDelta(c.Request.Context(), categoryID, req.Delta)
	if reason := skippedReason(a.requestLocale(c).Language, err); reason != "" {
		resp := buildProgress(t)
		c.JSON(http.StatusOK, gin.H{"skipped": reason, "progress": resp})
		return
	}
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"progress": buildProgress(t)})
}

// GetJournal 返回窗口内的流水，未指定窗口时使用会话当前窗口
func (a *API) GetJournal(c *gin.Context) {
	table, ok := a.ownedTable(c)
	if !ok {
		return
	}
	window, explicit, err := a.queryWindow(c)
	if err != nil {
		a.respondMessage(c, http.StatusBadRequest, locale.ErrInvalidWindow)
		return
	}
	if !explicit {
		t, ok := a.trackerFor(c, table.ID)
		if !ok {
			return
		}
		window = t.coordinator.Window()
	}

	records, err := a.journal.QueryJournal(c.Request.Context(), table.ID, window)
	if err != nil {
		a.handleTrackerError(c, err)
		return
	}

	items := make([]journalItem, 0, len(records))
	for _, r := range records {
		items = append(items, journalItem{
			ID:         r.ID,
			CategoryID: r.CategoryID,
			Text:       r.Text,
			TextHTML:   r.TextHTML,
			Points:     r.Points,
			CreatedAt:  r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"window": newWindowResponse(window), "records": items})
}
