package petal

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/petallog/internal/progress"
)

func sampleValues() []progress.CategoryValue {
	return []progress.CategoryValue{
		{CategoryID: 1, Title: "跑步", Color: "#f26b6b", Value: 3, Max: intPtr(5)},
		{CategoryID: 2, Title: "<阅读>", Color: "#5c8df2", Value: 0},
		{CategoryID: 3, Title: "冥想", Color: "", Value: 6},
	}
}

func TestRenderSVGPlaceholder(t *testing.T) {
	r := NewRenderer(Callbacks{})
	var buf bytes.Buffer
	if err := r.RenderSVG(&buf, Options{Size: 200, Placeholder: "还没有分类"}); err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "还没有分类") || !strings.Contains(out, "petal-placeholder") {
		t.Fatalf("expected placeholder markup, got %s", out)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "</svg>") {
		t.Fatal("placeholder svg should be complete")
	}
}

func TestRenderSVGClipsFillToPetal(t *testing.T) {
	r := NewRenderer(Callbacks{})
	r.Click(1)

	var buf bytes.Buffer
	if err := r.RenderSVG(&buf, Options{Values: sampleValues(), Size: 300}); err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	out := buf.String()

	for _, id := range []string{"1", "2", "3"} {
		if !strings.Contains(out, `<clipPath id="petal-clip-`+id+`">`) {
			t.Fatalf("missing clip path for %s", id)
		}
		if !strings.Contains(out, `clip-path="url(#petal-clip-`+id+`)"`) {
			t.Fatalf("fill for %s is not clipped", id)
		}
	}
	if !strings.Contains(out, `data-progress="0.6000"`) {
		t.Fatal("bounded category should report progress 0.6")
	}
	if !strings.Contains(out, "&lt;阅读&gt;") {
		t.Fatal("titles should be escaped")
	}
	if strings.Count(out, `stroke-width="3.0"`) != 1 {
		t.Fatal("exactly the selected petal should be highlighted")
	}
	if strings.Contains(out, "<animate") {
		t.Fatal("no animation expected without an animator")
	}
}

func TestRenderSVGAnimatesFromPreviousRadius(t *testing.T) {
	values := sampleValues()
	layout := NewLayout(values, 300, 0)
	animator := NewAnimator(60, 6)
	animator.Sync(Targets(layout))

	values[0].Value = 5
	animator.Sync(Targets(NewLayout(values, 300, 0)))

	r := NewRenderer(Callbacks{})
	var buf bytes.Buffer
	if err := r.RenderSVG(&buf, Options{Values: values, Size: 300, Animator: animator}); err != nil {
		t.Fatalf("RenderSVG returned error: %v", err)
	}
	out := buf.String()
	if strings.Count(out, `<animate attributeName="r"`) != 1 {
		t.Fatalf("only the changed petal should animate:\n%s", out)
	}
}

func TestRendererCallbacks(t *testing.T) {
	var selected, edited []uint
	var added []int
	r := NewRenderer(Callbacks{
		OnSelectCategory: func(id uint) { selected = append(selected, id) },
		OnEditCategory:   func(id uint) { edited = append(edited, id) },
		OnAddDelta: func(_ context.Context, id uint, delta int) error {
			added = append(added, delta)
			if delta > 1 {
				return errors.New("too much")
			}
			return nil
		},
	})

	r.Click(3)
	if id, ok := r.Selected(); !ok || id != 3 {
		t.Fatalf("expected 3 selected, got %d", id)
	}
	r.DoubleClick(2)
	if len(edited) != 1 || edited[0] != 2 {
		t.Fatalf("double click should edit, got %v", edited)
	}
	if len(selected) != 2 {
		t.Fatalf("double click also selects, got %v", selected)
	}

	if err := r.AddDelta(context.Background(), 2, 1); err != nil {
		t.Fatalf("AddDelta returned error: %v", err)
	}
	if err := r.AddDelta(context.Background(), 2, 5); err == nil {
		t.Fatal("callback error should be returned")
	}
	if len(added) != 2 {
		t.Fatalf("expected both deltas forwarded, got %v", added)
	}

	layout := NewLayout(sampleValues(), 300, 0)
	if _, ok := r.ClickAt(layout, 1, 1); ok {
		t.Fatal("corner click should miss")
	}
	if _, ok := r.Selected(); ok {
		t.Fatal("clicking empty space clears the selection")
	}
}

func TestRasterizeFillsFromHub(t *testing.T) {
	values := []progress.CategoryValue{
		{CategoryID: 1, Color: "#ff0000", Value: 5, Max: intPtr(5)},
		{CategoryID: 2, Color: "#0000ff", Value: 0, Max: intPtr(5)},
	}
	r := NewRenderer(Callbacks{})

	var buf bytes.Buffer
	if err := r.RenderPNG(&buf, Options{Values: values, Size: 200}); err != nil {
		t.Fatalf("RenderPNG returned error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}

	layout := NewLayout(values, 200, 0)
	full := layout.Petals[0].HeadCenter
	empty := layout.Petals[1].HeadCenter

	fr, fg, fb, _ := img.At(int(full.X), int(full.Y)).RGBA()
	if fr>>8 < 0xf0 || fg>>8 > 0x20 || fb>>8 > 0x20 {
		t.Fatalf("full petal should be painted red, got %x %x %x", fr>>8, fg>>8, fb>>8)
	}
	er, eg, eb, _ := img.At(int(empty.X), int(empty.Y)).RGBA()
	if eb>>8 < er>>8 || er>>8 < 0xc0 {
		t.Fatalf("empty petal should only show its light track, got %x %x %x", er>>8, eg>>8, eb>>8)
	}
	cr, cg, cb, _ := img.At(100, 100).RGBA()
	if cr>>8 != 0xff || cg>>8 != 0xff || cb>>8 != 0xff {
		t.Fatal("hub should be white")
	}
}
