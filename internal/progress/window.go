package progress

import (
	"fmt"
	"time"
)

// DateLayout 是窗口参数使用的日期格式
const DateLayout = "2006-01-02"

// WindowMode 区分单日与区间
type WindowMode string

const (
	ModeDay   WindowMode = "day"
	ModeRange WindowMode = "range"
)

// Window 是半开区间 [Start, End)，边界以本地日历日为准
type Window struct {
	Mode  WindowMode
	Start time.Time
	End   time.Time
}

// DayWindow 返回 t 所在日历日的窗口
func DayWindow(t time.Time) Window {
	start := startOfDay(t)
	return Window{Mode: ModeDay, Start: start, End: start.AddDate(0, 0, 1)}
}

// RangeWindow 返回包含首尾两天的区间窗口
func RangeWindow(start, end time.Time) (Window, error) {
	from := startOfDay(start)
	to := startOfDay(end)
	if to.Before(from) {
		return Window{}, fmt.Errorf("%w: range end before start", ErrValidation)
	}
	return Window{Mode: ModeRange, Start: from, End: to.AddDate(0, 0, 1)}, nil
}

// ParseWindow 根据 date 或 start/end 参数构造窗口，全部为空时取 now 所在日
func ParseWindow(date, start, end string, now time.Time) (Window, error) {
	loc := now.Location()
	switch {
	case date != "":
		day, err := time.ParseInLocation(DateLayout, date, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: invalid date %q", ErrValidation, date)
		}
		return DayWindow(day), nil
	case start != "" || end != "":
		if start == "" || end == "" {
			return Window{}, fmt.Errorf("%w: range needs both start and end", ErrValidation)
		}
		from, err := time.ParseInLocation(DateLayout, start, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: invalid start %q", ErrValidation, start)
		}
		to, err := time.ParseInLocation(DateLayout, end, loc)
		if err != nil {
			return Window{}, fmt.Errorf("%w: invalid end %q", ErrValidation, end)
		}
		return RangeWindow(from, to)
	default:
		return DayWindow(now), nil
	}
}

// Contains 判断时间点是否落在窗口内
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// LastDay 返回窗口内最后一个日历日的零点
func (w Window) LastDay() time.Time {
	return w.End.AddDate(0, 0, -1)
}

// Equal 比较两个窗口是否覆盖同一区间
func (w Window) Equal(other Window) bool {
	return w.Mode == other.Mode && w.Start.Equal(other.Start) && w.End.Equal(other.End)
}

func (w Window) String() string {
	if w.Mode == ModeDay {
		return w.Start.Format(DateLayout)
	}
	return w.Start.Format(DateLayout) + ".." + w.LastDay().Format(DateLayout)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
