package petal

import (
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/harmonica"
)

const (
	DefaultFPS       = 60
	DefaultFrequency = 6.0
	// 阻尼比为 1 时弹簧临界阻尼，不会越过目标值
	criticalDamping = 1.0
	settleEpsilon   = 0.01
	maxTickFrames   = 600
)

type springState struct {
	pos    float64
	vel    float64
	target float64
}

// Animator 为每个分类维护一个填充半径弹簧
// 与几何计算解耦：Layout 只给出目标半径，Animator 负责把它平滑地推过去
type Animator struct {
	mu       sync.Mutex
	spring   harmonica.Spring
	fps      int
	states   map[uint]*springState
	lastTick time.Time
}

// NewAnimator 构造 Animator，非法参数回退默认值
func NewAnimator(fps int, frequency float64) *Animator {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if frequency <= 0 {
		frequency = DefaultFrequency
	}
	return &Animator{
		spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, criticalDamping),
		fps:    fps,
		states: make(map[uint]*springState),
	}
}

// FPS 返回弹簧的采样帧率
func (a *Animator) FPS() int {
	return a.fps
}

// SetTarget 更新目标半径；首次出现的分类直接落在目标上
// 已有速度会保留，连续多次更新会合并成一次连贯的运动
func (a *Animator) SetTarget(id uint, target float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if st, ok := a.states[id]; ok {
		st.target = target
		return
	}
	a.states[id] = &springState{pos: target, target: target}
}

// Sync 按 targets 设置目标并移除已不存在的分类
func (a *Animator) Sync(targets map[uint]float64) {
	for id, target := range targets {
		a.SetTarget(id, target)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for id := range a.states {
		if _, ok := targets[id]; !ok {
			delete(a.states, id)
		}
	}
}

// Advance 推进 frames 帧
func (a *Animator) Advance(frames int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.advanceLocked(frames)
}

// Tick 按真实时间推进，返回推进的帧数
func (a *Animator) Tick(now time.Time) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lastTick.IsZero() {
		a.lastTick = now
		return 0
	}
	frames := int(now.Sub(a.lastTick).Seconds() * float64(a.fps))
	if frames <= 0 {
		return 0
	}
	a.lastTick = a.lastTick.Add(time.Duration(frames) * time.Second / time.Duration(a.fps))
	if frames > maxTickFrames {
		frames = maxTickFrames
	}
	a.advanceLocked(frames)
	return frames
}

func (a *Animator) advanceLocked(frames int) {
	for _, st := range a.states {
		for i := 0; i < frames; i++ {
			if settled(st) {
				st.pos, st.vel = st.target, 0
				break
			}
			st.pos, st.vel = a.spring.Update(st.pos, st.vel, st.target)
		}
	}
}

// Position 返回当前半径
func (a *Animator) Position(id uint) (float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.states[id]
	if !ok {
		return 0, false
	}
	return st.pos, true
}

// Settled 报告分类的弹簧是否已经静止在目标上
func (a *Animator) Settled(id uint) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.states[id]
	return !ok || settled(st)
}

// Keyframes 从当前状态开始模拟，每 step 帧采样一次直到静止或达到 maxFrames
// 不修改弹簧状态；结果首项为当前位置，末项为目标值
func (a *Animator) Keyframes(id uint, maxFrames, step int) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	st, ok := a.states[id]
	if !ok {
		return nil
	}
	if step <= 0 {
		step = 1
	}
	sim := *st
	frames := []float64{sim.pos}
	for i := 1; i <= maxFrames && !settled(&sim); i++ {
		sim.pos, sim.vel = a.spring.Update(sim.pos, sim.vel, sim.target)
		if i%step == 0 {
			frames = append(frames, sim.pos)
		}
	}
	if frames[len(frames)-1] != sim.target {
		frames = append(frames, sim.target)
	}
	return frames
}

func settled(st *springState) bool {
	return math.Abs(st.pos-st.target) < settleEpsilon && math.Abs(st.vel) < settleEpsilon
}
