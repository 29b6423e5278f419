package progress

import (
	"sync"
	"time"
)

// DefaultCooldown 是同一分类两次变更之间的最短间隔
const DefaultCooldown = 900 * time.Millisecond

// KeyedLock 为每个分类维护一把带冷却期的锁
// 持有期间及释放后的冷却期内，同一 key 的 TryAcquire 都会失败；不同 key 互不影响
type KeyedLock struct {
	mu       sync.Mutex
	cooldown time.Duration
	now      func() time.Time
	holds    map[uint]*lockHold
}

type lockHold struct {
	inFlight   bool
	acquiredAt time.Time
	until      time.Time
}

// NewKeyedLock 构造 KeyedLock，cooldown<=0 时使用 DefaultCooldown
func NewKeyedLock(cooldown time.Duration) *KeyedLock {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &KeyedLock{
		cooldown: cooldown,
		now:      time.Now,
		holds:    make(map[uint]*lockHold),
	}
}

// WithClock 替换时钟，主要面向测试
func (l *KeyedLock) WithClock(now func() time.Time) *KeyedLock {
	if now != nil {
		l.now = now
	}
	return l
}

// TryAcquire 尝试占用 key，成功返回 true；顺带清掉冷却已过的 key
func (l *KeyedLock) TryAcquire(key uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, hold := range l.holds {
		if !hold.inFlight && !now.Before(hold.until) {
			delete(l.holds, k)
		}
	}
	if hold, ok := l.holds[key]; ok {
		if hold.inFlight || now.Before(hold.until) {
			return false
		}
	}
	l.holds[key] = &lockHold{inFlight: true, acquiredAt: now}
	return true
}

// Release 立即释放 key，不进入冷却期
func (l *KeyedLock) Release(key uint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.holds, key)
}

// ReleaseWithCooldown 结束在途状态，key 保持占用直到获取时间加冷却期
func (l *KeyedLock) ReleaseWithCooldown(key uint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hold, ok := l.holds[key]
	if !ok {
		return
	}
	hold.inFlight = false
	hold.until = hold.acquiredAt.Add(l.cooldown)
	if !l.now().Before(hold.until) {
		delete(l.holds, key)
	}
}

// InFlight 报告 key 当前是否有变更正在持久化
func (l *KeyedLock) InFlight(key uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	hold, ok := l.holds[key]
	return ok && hold.inFlight
}

// Held 报告 key 当前是否会拒绝新的变更（在途或冷却中）
func (l *KeyedLock) Held(key uint) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	hold, ok := l.holds[key]
	if !ok {
		return false
	}
	return hold.inFlight || l.now().Before(hold.until)
}

func (l *KeyedLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.holds)
}
