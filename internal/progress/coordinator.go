package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/petallog/internal/db"
)

// CoordinatorOptions 配置 Coordinator 的可选依赖
type CoordinatorOptions struct {
	Cooldown time.Duration
	Logger   *slog.Logger
	Now      func() time.Time
}

// Snapshot 是协调器本地状态的只读副本
type Snapshot struct {
	Window Window
	Values []CategoryValue
	Epoch  uint64
}

// Value 按分类查找合计值
func (s Snapshot) Value(categoryID uint) (CategoryValue, bool) {
	for _, v := range s.Values {
		if v.CategoryID == categoryID {
			return v, true
		}
	}
	return CategoryValue{}, false
}

// Coordinator 负责乐观更新、持久化、回滚与重新聚合
//
// 本地状态按分类缓存，最终总会被权威聚合结果覆盖。每次刷新都带一个单调递增的
// epoch，只有最新一次刷新的结果才会落到本地状态上；切换窗口时清空本地状态并取消旧窗口的上下文。
type Coordinator struct {
	tableID   uint
	aggregate AggregateFunc
	entries   EntryWriter
	journal   JournalWriter
	locks     *KeyedLock
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	window  Window
	gen     uint64 // 每次切换窗口加一
	values  map[uint]*CategoryValue
	pending map[uint]struct{}
	epoch   uint64
	ctx     context.Context
	cancel  context.CancelFunc

	running int
	settled uint64
	idle    *sync.Cond
}

// refreshTicket 是一次刷新在开始时捕获的状态
type refreshTicket struct {
	epoch  uint64
	window Window
	ctx    context.Context
}

// NewCoordinator 构造 Coordinator，初始窗口为 window，调用 Refresh 后才有数据
func NewCoordinator(tableID uint, aggregate AggregateFunc, entries EntryWriter, journal JournalWriter, window Window, opts CoordinatorOptions) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		tableID:   tableID,
		aggregate: aggregate,
		entries:   entries,
		journal:   journal,
		locks:     NewKeyedLock(opts.Cooldown).WithClock(now),
		logger:    logger.With("component", "coordinator", "table_id", tableID),
		now:       now,
		window:    window,
		values:    make(map[uint]*CategoryValue),
		pending:   make(map[uint]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// TableID 返回协调器负责的进度表
func (c *Coordinator) TableID() uint {
	return c.tableID
}

// Window 返回当前选中的窗口
func (c *Coordinator) Window() Window {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window
}

// InFlight 报告分类是否有变更正在持久化
func (c *Coordinator) InFlight(categoryID uint) bool {
	return c.locks.InFlight(categoryID)
}

// Snapshot 返回按 position 排序的本地状态
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make([]CategoryValue, 0, len(c.values))
	for _, v := range c.values {
		copied := *v
		copied.Max = copyMax(v.Max)
		values = append(values, copied)
	}
	SortValues(values)
	return Snapshot{Window: c.window, Values: values, Epoch: c.epoch}
}

// Apply 对分类施加增量
//
// 同一分类在途或冷却期内返回 ErrMutationInFlight；钳制后增量为 0 返回 ErrNoChange，
// 两者都包装 ErrConcurrencyGuard。记录写入失败时本地值回滚到调用前并返回 ErrPersistence。
// 无论成败都会在后台触发一次权威刷新。
//
// 窗口切换后、新窗口数据到达前本地没有任何分类，此时返回 ErrNotFound。
func (c *Coordinator) Apply(ctx context.Context, categoryID uint, delta int) error {
	if !c.locks.TryAcquire(categoryID) {
		return ErrMutationInFlight
	}

	c.mu.Lock()
	current, ok := c.values[categoryID]
	if !ok {
		c.mu.Unlock()
		c.locks.Release(categoryID)
		return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
	}

	prev := current.Value
	next := clampValue(prev+delta, current.Max)
	// 上限被调低后 prev 可能已越界，此时不允许反向修正
	if (delta > 0 && next < prev) || (delta < 0 && next > prev) {
		next = prev
	}
	actual := next - prev
	if actual == 0 {
		c.mu.Unlock()
		c.locks.Release(categoryID)
		return ErrNoChange
	}

	// 记录时间与钳制用的 prev 必须来自同一个窗口
	gen := c.gen
	current.Value = next
	title := current.Title
	at := c.stamp(c.window)
	c.pending[categoryID] = struct{}{}
	c.mu.Unlock()

	if _, err := c.entries.InsertEntry(ctx, c.tableID, categoryID, actual, at); err != nil {
		c.mu.Lock()
		if gen == c.gen {
			delete(c.pending, categoryID)
			if v, ok := c.values[categoryID]; ok {
				v.Value = prev
			}
		}
		ticket := c.beginRefreshLocked()
		c.mu.Unlock()
		c.locks.Release(categoryID)

		c.logger.WarnContext(ctx, "entry insert failed, rolled back",
			"category_id", categoryID,
			"delta", actual,
			"restored", prev,
			"error", err)
		c.refreshInBackground(ticket)
		return fmt.Errorf("apply delta to category %d: %w", categoryID, asPersistence(err))
	}

	// 清除 pending 与分配下一次刷新的 epoch 在同一把锁内完成，
	// 插入前发出的刷新因此都会被丢弃，不会用旧合计覆盖乐观值
	c.mu.Lock()
	if gen == c.gen {
		delete(c.pending, categoryID)
	}
	ticket := c.beginRefreshLocked()
	c.mu.Unlock()

	// 记录与流水不在同一事务中：流水失败只记日志，统计以 Entry 为准
	record := db.JournalRecord{
		TableID:    c.tableID,
		Date:       startOfDay(at),
		CategoryID: &categoryID,
		Text:       JournalText(actual, title),
		Points:     actual,
		CreatedAt:  at,
	}
	if _, err := c.journal.InsertJournalRecord(ctx, record); err != nil {
		c.logger.ErrorContext(ctx, "journal insert failed after entry was persisted",
			"category_id", categoryID,
			"delta", actual,
			"error", err)
	}

	c.locks.ReleaseWithCooldown(categoryID)
	c.refreshInBackground(ticket)
	return nil
}

// Refresh 同步地按当前窗口重新聚合；被更新的请求取代时静默返回
func (c *Coordinator) Refresh() error {
	c.mu.Lock()
	ticket := c.beginRefreshLocked()
	c.mu.Unlock()
	return c.runRefresh(ticket)
}

// SetWindow 切换窗口：清空旧窗口的本地状态，取消其在途查询并按新窗口刷新
func (c *Coordinator) SetWindow(window Window) error {
	c.mu.Lock()
	if !c.window.Equal(window) {
		c.cancel()
		c.ctx, c.cancel = context.WithCancel(context.Background())
		c.window = window
		c.gen++
		c.values = make(map[uint]*CategoryValue)
		c.pending = make(map[uint]struct{})
	}
	ticket := c.beginRefreshLocked()
	c.mu.Unlock()

	return c.runRefresh(ticket)
}

// Wait 等待调用时已经发出的刷新落定
//
// 之后发出的刷新不在等待范围内，持续的变更不会让 Wait 一直阻塞。
func (c *Coordinator) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	target := c.epoch
	for c.settled < target {
		c.idle.Wait()
	}
}

// Close 取消在途查询并等待所有刷新退出
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	for c.running > 0 {
		c.idle.Wait()
	}
}

// beginRefreshLocked 分配新的 epoch 并登记一次刷新，调用方持有 c.mu
func (c *Coordinator) beginRefreshLocked() refreshTicket {
	c.epoch++
	c.running++
	return refreshTicket{epoch: c.epoch, window: c.window, ctx: c.ctx}
}

func (c *Coordinator) refreshInBackground(ticket refreshTicket) {
	go func() {
		if err := c.runRefresh(ticket); err != nil {
			c.logger.Warn("background refresh failed", "error", err)
		}
	}()
}

func (c *Coordinator) runRefresh(ticket refreshTicket) error {
	defer c.settle(ticket.epoch)

	values, err := c.aggregate(ticket.ctx, c.tableID, ticket.window)
	if err != nil {
		if ticket.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("refresh %s: %w", ticket.window, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ticket.epoch != c.epoch {
		c.logger.Debug("discarding superseded refresh",
			"window", ticket.window.String(),
			"epoch", ticket.epoch,
			"latest", c.epoch)
		return nil
	}

	next := make(map[uint]*CategoryValue, len(values))
	for _, v := range values {
		value := v
		if _, busy := c.pending[v.CategoryID]; busy {
			if local, ok := c.values[v.CategoryID]; ok {
				value.Value = local.Value
			}
		}
		next[v.CategoryID] = &value
	}
	c.values = next
	return nil
}

func (c *Coordinator) settle(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if epoch > c.settled {
		c.settled = epoch
	}
	c.running--
	c.idle.Broadcast()
}

// stamp 返回新记录的时间：窗口包含当前时间时取当前时间，
// 否则落在窗口最后一天的同一时刻，保证记录能被当前窗口统计到
func (c *Coordinator) stamp(window Window) time.Time {
	now := c.now()
	if window.Contains(now) {
		return now
	}
	last := window.LastDay()
	return time.Date(last.Year(), last.Month(), last.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), last.Location())
}

// JournalText 生成流水文字，例如 "+1 跑步"
func JournalText(delta int, title string) string {
	return fmt.Sprintf("%+d %s", delta, title)
}

func clampValue(value int, max *int) int {
	if value < 0 {
		return 0
	}
	if max != nil && value > *max {
		return *max
	}
	return value
}

func asPersistence(err error) error {
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}
