package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/petallog/internal/petal"
	"github.com/petallog/internal/progress"
)

type trackerConfig struct {
	aggregate       progress.AggregateFunc
	entries         progress.EntryWriter
	journal         progress.JournalWriter
	cooldown        time.Duration
	ttl             time.Duration
	springFrequency float64
	fps             int
	logger          *slog.Logger
	now             func() time.Time
}

type trackerKey struct {
	sid     string
	tableID uint
}

// tracker 是某个浏览器会话在一张进度表上的全部交互状态
type tracker struct {
	coordinator *progress.Coordinator
	renderer    *petal.Renderer
	animator    *petal.Animator

	mu       sync.Mutex
	editing  uint
	lastUsed time.Time
}

func (t *tracker) takeEditing() uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.editing
	t.editing = 0
	return id
}

// trackerSessions 按 (会话, 进度表) 缓存 tracker，闲置超过 ttl 的在下次访问时回收
type trackerSessions struct {
	cfg trackerConfig

	mu    sync.Mutex
	items map[trackerKey]*tracker
}

func newTrackerSessions(cfg trackerConfig) *trackerSessions {
	if cfg.ttl <= 0 {
		cfg.ttl = 30 * time.Minute
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &trackerSessions{cfg: cfg, items: make(map[trackerKey]*tracker)}
}

// get 返回已有 tracker，不存在时创建并做一次初始聚合；初始聚合失败时返回错误
func (s *trackerSessions) get(sid string, tableID uint) (*tracker, error) {
	now := s.cfg.now()
	key := trackerKey{sid: sid, tableID: tableID}

	s.mu.Lock()
	expired := s.sweepLocked(now)
	t, ok := s.items[key]
	if ok {
		t.mu.Lock()
		t.lastUsed = now
		t.mu.Unlock()
	} else {
		t = s.newTracker(tableID, now)
		s.items[key] = t
	}
	s.mu.Unlock()

	for _, old := range expired {
		old.coordinator.Close()
	}
	if !ok {
		if err := t.coordinator.Refresh(); err != nil {
			// 初次聚合失败的 tracker 不缓存，下次 get 重新创建
			s.mu.Lock()
			if s.items[key] == t {
				delete(s.items, key)
			}
			s.mu.Unlock()
			t.coordinator.Close()
			return nil, err
		}
	}
	return t, nil
}

func (s *trackerSessions) newTracker(tableID uint, now time.Time) *tracker {
	coordinator := progress.NewCoordinator(tableID, s.cfg.aggregate, s.cfg.entries, s.cfg.journal,
		progress.DayWindow(now), progress.CoordinatorOptions{
			Cooldown: s.cfg.cooldown,
			Logger:   s.cfg.logger,
			Now:      s.cfg.now,
		})
	t := &tracker{
		coordinator: coordinator,
		animator:    petal.NewAnimator(s.cfg.fps, s.cfg.springFrequency),
		lastUsed:    now,
	}
	t.renderer = petal.NewRenderer(petal.Callbacks{
		OnAddDelta: func(ctx context.Context, categoryID uint, delta int) error {
			return coordinator.Apply(ctx, categoryID, delta)
		},
		OnEditCategory: func(categoryID uint) {
			t.mu.Lock()
			t.editing = categoryID
			t.mu.Unlock()
		},
	})
	return t
}

func (s *trackerSessions) sweepLocked(now time.Time) []*tracker {
	var expired []*tracker
	for key, t := range s.items {
		t.mu.Lock()
		idle := now.Sub(t.lastUsed)
		t.mu.Unlock()
		if idle > s.cfg.ttl {
			expired = append(expired, t)
			delete(s.items, key)
		}
	}
	return expired
}

// refreshTable 在分类元数据变化后刷新所有打开该表的 tracker
func (s *trackerSessions) refreshTable(tableID uint) {
	s.mu.Lock()
	var targets []*tracker
	for key, t := range s.items {
		if key.tableID == tableID {
			targets = append(targets, t)
		}
	}
	s.mu.Unlock()

	for _, t := range targets {
		if err := t.coordinator.Refresh(); err != nil {
			s.cfg.logger.Warn("refresh after category change failed", "table_id", tableID, "error", err)
		}
	}
}

func (s *trackerSessions) dropSession(sid string) {
	s.mu.Lock()
	var dropped []*tracker
	for key, t := range s.items {
		if key.sid == sid {
			dropped = append(dropped, t)
			delete(s.items, key)
		}
	}
	s.mu.Unlock()

	for _, t := range dropped {
		t.coordinator.Close()
	}
}

func (s *trackerSessions) closeAll() {
	s.mu.Lock()
	items := s.items
	s.items = make(map[trackerKey]*tracker)
	s.mu.Unlock()

	for _, t := range items {
		t.coordinator.Close()
	}
}

func (s *trackerSessions) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
