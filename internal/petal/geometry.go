package petal

import (
	"fmt"
	"math"

	"github.com/petallog/internal/progress"
)

const (
	// DefaultInnerRatio 是花心半径占外半径的比例
	DefaultInnerRatio = 0.18
	outerMargin       = 0.92
	maxHeadRatio      = 0.4
)

// Point 是画布坐标，y 轴向下
type Point struct {
	X, Y float64
}

func (p Point) sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) dot(q Point) float64   { return p.X*q.X + p.Y*q.Y }
func (p Point) cross(q Point) float64 { return p.X*q.Y - p.Y*q.X }

func polar(center Point, r, angle float64) Point {
	return Point{center.X + r*math.Cos(angle), center.Y + r*math.Sin(angle)}
}

// Petal 是单个分类的静态几何，和进度无关的部分只由 N 与尺寸决定
type Petal struct {
	Index      int
	CategoryID uint
	Title      string
	Color      string
	Value      int
	Max        *int
	Progress   float64

	Angle      float64
	HeadCenter Point
	HeadRadius float64
	TangentA   Point
	TangentB   Point
}

// Layout 描述整张花瓣图
type Layout struct {
	Size      float64
	Center    Point
	Outer     float64
	Inner     float64
	GlobalMax int
	Petals    []Petal
}

// GlobalMax 返回 max(1, 各分类 max 或 value 的最大值)
func GlobalMax(values []progress.CategoryValue) int {
	result := 1
	for _, v := range values {
		bound := v.Value
		if v.Max != nil {
			bound = *v.Max
		}
		if bound > result {
			result = bound
		}
	}
	return result
}

// Progress 计算 clamp(value / (max ?? globalMax), 0, 1)
func Progress(value int, max *int, globalMax int) float64 {
	denominator := globalMax
	if max != nil {
		denominator = *max
	}
	if denominator <= 0 {
		return 0
	}
	return clamp01(float64(value) / float64(denominator))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// NewLayout 把按顺序排好的分类均匀排布在圆周上，第一片花瓣朝上
func NewLayout(values []progress.CategoryValue, size, innerRatio float64) Layout {
	if innerRatio <= 0 || innerRatio >= 1 {
		innerRatio = DefaultInnerRatio
	}
	outer := size / 2 * outerMargin
	layout := Layout{
		Size:      size,
		Center:    Point{size / 2, size / 2},
		Outer:     outer,
		Inner:     outer * innerRatio,
		GlobalMax: GlobalMax(values),
	}

	n := len(values)
	if n == 0 {
		return layout
	}

	sector := 2 * math.Pi / float64(n)
	headRadius := outer * headRatio(n, sector)
	distance := outer - headRadius
	alpha := math.Asin(headRadius / distance)
	tangentLen := math.Sqrt(distance*distance - headRadius*headRadius)

	layout.Petals = make([]Petal, n)
	for i, v := range values {
		angle := -math.Pi/2 + float64(i)*sector
		layout.Petals[i] = Petal{
			Index:      i,
			CategoryID: v.CategoryID,
			Title:      v.Title,
			Color:      v.Color,
			Value:      v.Value,
			Max:        v.Max,
			Progress:   Progress(v.Value, v.Max, layout.GlobalMax),
			Angle:      angle,
			HeadCenter: polar(layout.Center, distance, angle),
			HeadRadius: headRadius,
			TangentA:   polar(layout.Center, tangentLen, angle+alpha),
			TangentB:   polar(layout.Center, tangentLen, angle-alpha),
		}
	}
	return layout
}

// headRatio 让相邻花瓣的头部圆彼此不重叠，同时限制单瓣时的宽度
func headRatio(n int, sector float64) float64 {
	s := 1.0
	if n > 2 {
		s = math.Sin(sector / 2)
	}
	return math.Min(maxHeadRatio, outerMargin*s/(1+s))
}

// FillRadius 计算进度对应的填充圆半径，输入先被钳制到 [0,1]
func (l Layout) FillRadius(p float64) float64 {
	return l.Inner + clamp01(p)*(l.Outer-l.Inner)
}

// Contains 判断点是否落在花瓣轮廓内：轮廓是花心与头部圆的凸包
func (p Petal) Contains(center, pt Point) bool {
	if pt.sub(p.HeadCenter).dot(pt.sub(p.HeadCenter)) <= p.HeadRadius*p.HeadRadius {
		return true
	}
	return inTriangle(pt, center, p.TangentA, p.TangentB)
}

func inTriangle(pt, a, b, c Point) bool {
	d1 := b.sub(a).cross(pt.sub(a))
	d2 := c.sub(b).cross(pt.sub(b))
	d3 := a.sub(c).cross(pt.sub(c))
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

// HitTest 返回点击位置所在花瓣的分类 id
func (l Layout) HitTest(x, y float64) (uint, bool) {
	pt := Point{x, y}
	for _, p := range l.Petals {
		if p.Contains(l.Center, pt) {
			return p.CategoryID, true
		}
	}
	return 0, false
}

// Path 返回花瓣轮廓的 SVG path 数据
func (p Petal) Path(center Point) string {
	r := p.HeadRadius
	return fmt.Sprintf("M%.2f %.2f L%.2f %.2f A%.2f %.2f 0 1 0 %.2f %.2f Z",
		center.X, center.Y,
		p.TangentA.X, p.TangentA.Y,
		r, r,
		p.TangentB.X, p.TangentB.Y)
}

// Outline 把轮廓展开成多边形，segments 为头部圆弧的分段数
func (p Petal) Outline(center Point, segments int) []Point {
	if segments < 4 {
		segments = 4
	}
	from := angleOf(p.TangentA.sub(p.HeadCenter))
	to := angleOf(p.TangentB.sub(p.HeadCenter))
	// 圆弧从 A 经过花瓣尖端走到 B，角度递减
	for to >= from {
		to -= 2 * math.Pi
	}

	points := make([]Point, 0, segments+2)
	points = append(points, center)
	for i := 0; i <= segments; i++ {
		a := from + (to-from)*float64(i)/float64(segments)
		points = append(points, polar(p.HeadCenter, p.HeadRadius, a))
	}
	return points
}

// Circle 返回近似圆的多边形
func Circle(center Point, r float64, segments int) []Point {
	points := make([]Point, segments)
	for i := range points {
		points[i] = polar(center, r, 2*math.Pi*float64(i)/float64(segments))
	}
	return points
}

func angleOf(v Point) float64 {
	return math.Atan2(v.Y, v.X)
}
