package petal

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/petallog/internal/progress"
)

const (
	fallbackColor     = "#9aa5b1"
	placeholderText   = "No categories yet"
	keyframeMaxFrames = 180
	keyframeStep      = 3
)

// Callbacks 是花瓣交互的回调，均可为空
type Callbacks struct {
	OnAddDelta       func(ctx context.Context, categoryID uint, delta int) error
	OnEditCategory   func(categoryID uint)
	OnSelectCategory func(categoryID uint)
}

// Options 描述一次渲染的输入
type Options struct {
	Values      []progress.CategoryValue
	Size        int
	InnerRatio  float64
	Placeholder string
	// Animator 为空时直接画出目标半径
	Animator *Animator
}

// Renderer 只保存当前选中的花瓣，其余输出完全由 Options 决定
type Renderer struct {
	mu        sync.Mutex
	selected  uint
	callbacks Callbacks
}

// NewRenderer 构造 Renderer
func NewRenderer(callbacks Callbacks) *Renderer {
	return &Renderer{callbacks: callbacks}
}

// Selected 返回当前选中的分类
func (r *Renderer) Selected() (uint, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selected, r.selected != 0
}

// Click 选中花瓣，id 为 0 表示取消选中
func (r *Renderer) Click(id uint) {
	r.mu.Lock()
	r.selected = id
	cb := r.callbacks.OnSelectCategory
	r.mu.Unlock()

	if cb != nil && id != 0 {
		cb(id)
	}
}

// ClickAt 对画布坐标做命中测试后选中，点空白处取消选中
func (r *Renderer) ClickAt(layout Layout, x, y float64) (uint, bool) {
	id, ok := layout.HitTest(x, y)
	r.Click(id)
	return id, ok
}

// DoubleClick 选中花瓣并触发编辑回调
func (r *Renderer) DoubleClick(id uint) {
	r.Click(id)
	if cb := r.callbacks.OnEditCategory; cb != nil && id != 0 {
		cb(id)
	}
}

// AddDelta 把增量交给宿主处理
func (r *Renderer) AddDelta(ctx context.Context, id uint, delta int) error {
	if r.callbacks.OnAddDelta == nil {
		return nil
	}
	return r.callbacks.OnAddDelta(ctx, id, delta)
}

// Targets 返回每个分类的目标填充半径，供 Animator.Sync 使用
func Targets(layout Layout) map[uint]float64 {
	targets := make(map[uint]float64, len(layout.Petals))
	for _, p := range layout.Petals {
		targets[p.CategoryID] = layout.FillRadius(p.Progress)
	}
	return targets
}

// RenderSVG 输出花瓣图 SVG
func (r *Renderer) RenderSVG(w io.Writer, opts Options) error {
	size := opts.Size
	if size <= 0 {
		size = 360
	}
	layout := NewLayout(opts.Values, float64(size), opts.InnerRatio)
	selected, _ := r.Selected()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img">`, size, size, size, size)
	buf.WriteString("\n")

	if len(layout.Petals) == 0 {
		writePlaceholder(&buf, layout, opts.Placeholder)
		buf.WriteString("</svg>\n")
		_, err := w.Write(buf.Bytes())
		return err
	}

	buf.WriteString("<defs>\n")
	for _, p := range layout.Petals {
		fmt.Fprintf(&buf, `<clipPath id="petal-clip-%d"><path d="%s"/></clipPath>`+"\n", p.CategoryID, p.Path(layout.Center))
	}
	buf.WriteString("</defs>\n")

	fps := DefaultFPS
	if opts.Animator != nil {
		fps = opts.Animator.FPS()
	}

	for _, p := range layout.Petals {
		palette := newPetalPalette(p.Color)
		strokeWidth := 1.5
		stroke := palette.outline
		if p.CategoryID == selected {
			strokeWidth = 3
			stroke = palette.selected
		}

		fmt.Fprintf(&buf, `<g class="petal" data-category-id="%d" data-progress="%.4f">`+"\n", p.CategoryID, p.Progress)
		fmt.Fprintf(&buf, "<title>%s</title>\n", html.EscapeString(petalLabel(p)))
		fmt.Fprintf(&buf, `<path class="petal-track" d="%s" fill="%s" stroke="%s" stroke-width="%.1f"/>`+"\n",
			p.Path(layout.Center), palette.track, stroke, strokeWidth)

		target := layout.FillRadius(p.Progress)
		frames := []float64{target}
		if opts.Animator != nil {
			if kf := opts.Animator.Keyframes(p.CategoryID, keyframeMaxFrames, keyframeStep); len(kf) > 0 {
				frames = kf
			}
		}

		fmt.Fprintf(&buf, `<circle class="petal-fill" cx="%.2f" cy="%.2f" r="%.2f" fill="%s" clip-path="url(#petal-clip-%d)">`,
			layout.Center.X, layout.Center.Y, frames[len(frames)-1], palette.fill, p.CategoryID)
		if len(frames) > 1 {
			seconds := float64((len(frames)-1)*keyframeStep) / float64(fps)
			fmt.Fprintf(&buf, `<animate attributeName="r" values="%s" dur="%.2fs" fill="freeze"/>`, joinFrames(frames), seconds)
		}
		buf.WriteString("</circle>\n</g>\n")
	}

	fmt.Fprintf(&buf, `<circle class="petal-hub" cx="%.2f" cy="%.2f" r="%.2f" fill="#ffffff" stroke="#d0d5db" stroke-width="1"/>`+"\n",
		layout.Center.X, layout.Center.Y, layout.Inner)
	buf.WriteString("</svg>\n")

	_, err := w.Write(buf.Bytes())
	return err
}

func writePlaceholder(buf *bytes.Buffer, layout Layout, text string) {
	if strings.TrimSpace(text) == "" {
		text = placeholderText
	}
	fmt.Fprintf(buf, `<circle class="petal-placeholder" cx="%.2f" cy="%.2f" r="%.2f" fill="none" stroke="#c4cad1" stroke-width="2" stroke-dasharray="6 6"/>`+"\n",
		layout.Center.X, layout.Center.Y, layout.Outer)
	fmt.Fprintf(buf, `<text x="%.2f" y="%.2f" text-anchor="middle" dominant-baseline="middle" fill="#8a939c" font-size="%.0f">%s</text>`+"\n",
		layout.Center.X, layout.Center.Y, layout.Size/20+4, html.EscapeString(text))
}

func petalLabel(p Petal) string {
	if p.Max != nil {
		return fmt.Sprintf("%s %d/%d", p.Title, p.Value, *p.Max)
	}
	return fmt.Sprintf("%s %d", p.Title, p.Value)
}

func joinFrames(frames []float64) string {
	parts := make([]string, len(frames))
	for i, f := range frames {
		parts[i] = strconv.FormatFloat(f, 'f', 2, 64)
	}
	return strings.Join(parts, ";")
}

type petalPalette struct {
	fill     string
	track    string
	outline  string
	selected string
	base     colorful.Color
}

// newPetalPalette 由分类主色派生底色与描边色，无法解析时使用中性灰
func newPetalPalette(hex string) petalPalette {
	base, err := colorful.Hex(hex)
	if err != nil {
		base, _ = colorful.Hex(fallbackColor)
	}
	white := colorful.Color{R: 1, G: 1, B: 1}
	black := colorful.Color{R: 0, G: 0, B: 0}
	return petalPalette{
		fill:     base.Hex(),
		track:    base.BlendLab(white, 0.82).Clamped().Hex(),
		outline:  base.BlendLab(white, 0.35).Clamped().Hex(),
		selected: base.BlendLab(black, 0.3).Clamped().Hex(),
		base:     base,
	}
}
