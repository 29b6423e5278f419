package petal

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"
)

const (
	outlineSegments = 48
	circleSegments  = 96
)

// RenderPNG 把花瓣图栅格化为 PNG，填充半径取弹簧的当前位置
func (r *Renderer) RenderPNG(w io.Writer, opts Options) error {
	img := r.Rasterize(opts)
	return png.Encode(w, img)
}

// Rasterize 绘制花瓣图，返回 RGBA 图像
func (r *Renderer) Rasterize(opts Options) *image.RGBA {
	size := opts.Size
	if size <= 0 {
		size = 360
	}
	layout := NewLayout(opts.Values, float64(size), opts.InnerRatio)
	selected, _ := r.Selected()
	bounds := image.Rect(0, 0, size, size)

	img := image.NewRGBA(bounds)
	draw.Draw(img, bounds, image.NewUniform(color.White), image.Point{}, draw.Src)

	if len(layout.Petals) == 0 {
		ring := fillMask(size, Circle(layout.Center, layout.Outer, circleSegments))
		inner := fillMask(size, Circle(layout.Center, layout.Outer-2, circleSegments))
		subtractMask(ring, inner)
		paint(img, ring, color.RGBA{0xc4, 0xca, 0xd1, 0xff})
		return img
	}

	for _, p := range layout.Petals {
		palette := newPetalPalette(p.Color)
		outline := p.Outline(layout.Center, outlineSegments)
		petalMask := fillMask(size, outline)

		edgeColor := palette.outline
		if p.CategoryID == selected {
			edgeColor = palette.selected
		}
		paint(img, petalMask, hexRGBA(edgeColor))

		// 轮廓向内收缩一点作为底色，露出的边缘即描边
		track := fillMask(size, shrink(outline, p, 1.5))
		paint(img, track, hexRGBA(palette.track))

		radius := layout.FillRadius(p.Progress)
		if opts.Animator != nil {
			if pos, ok := opts.Animator.Position(p.CategoryID); ok {
				radius = pos
			}
		}
		fill := fillMask(size, Circle(layout.Center, radius, circleSegments))
		intersectMask(fill, track)
		paint(img, fill, toRGBA(palette.base))
	}

	hub := fillMask(size, Circle(layout.Center, layout.Inner, circleSegments))
	paint(img, hub, color.RGBA{0xd0, 0xd5, 0xdb, 0xff})
	hubInner := fillMask(size, Circle(layout.Center, layout.Inner-1, circleSegments))
	paint(img, hubInner, color.RGBA{0xff, 0xff, 0xff, 0xff})
	return img
}

func fillMask(size int, points []Point) *image.Alpha {
	mask := image.NewAlpha(image.Rect(0, 0, size, size))
	if len(points) < 3 {
		return mask
	}
	z := vector.NewRasterizer(size, size)
	z.MoveTo(float32(points[0].X), float32(points[0].Y))
	for _, pt := range points[1:] {
		z.LineTo(float32(pt.X), float32(pt.Y))
	}
	z.ClosePath()
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}

// intersectMask 逐像素取最小覆盖率，相当于裁剪
func intersectMask(dst, clip *image.Alpha) {
	for i := range dst.Pix {
		if clip.Pix[i] < dst.Pix[i] {
			dst.Pix[i] = clip.Pix[i]
		}
	}
}

func subtractMask(dst, hole *image.Alpha) {
	for i := range dst.Pix {
		if hole.Pix[i] >= dst.Pix[i] {
			dst.Pix[i] = 0
			continue
		}
		dst.Pix[i] -= hole.Pix[i]
	}
}

func paint(img *image.RGBA, mask *image.Alpha, c color.Color) {
	draw.DrawMask(img, img.Bounds(), image.NewUniform(c), image.Point{}, mask, image.Point{}, draw.Over)
}

// shrink 把轮廓上的点沿指向花瓣中轴的方向收缩 inset 像素
func shrink(points []Point, p Petal, inset float64) []Point {
	out := make([]Point, len(points))
	for i, pt := range points {
		if i == 0 {
			out[i] = pt
			continue
		}
		v := p.HeadCenter.sub(pt)
		length := v.dot(v)
		if length == 0 {
			out[i] = pt
			continue
		}
		scale := inset / math.Sqrt(length)
		out[i] = Point{pt.X + v.X*scale, pt.Y + v.Y*scale}
	}
	return out
}

func hexRGBA(hex string) color.RGBA {
	c, err := colorful.Hex(hex)
	if err != nil {
		c, _ = colorful.Hex(fallbackColor)
	}
	return toRGBA(c)
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
