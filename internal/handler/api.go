package handler

import (
	"log/slog"
	"time"

	"github.com/petallog/internal/progress"
	"github.com/petallog/internal/service"
	"gorm.io/gorm"
)

// Options 汇总 handler 层需要的运行参数
type Options struct {
	MutationCooldown time.Duration
	SessionTTL       time.Duration
	SpringFrequency  float64
	FPS              int
	Logger           *slog.Logger
	Now              func() time.Time
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	tables     *service.TableService
	categories *service.CategoryService
	entries    *service.EntryService
	journal    *service.JournalService
	settings   *service.SettingService
	aggregator *progress.Aggregator
	trackers   *trackerSessions
	logger     *slog.Logger
	now        func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	categories := service.NewCategoryService(gdb)
	entries := service.NewEntryService(gdb)
	journal := service.NewJournalService(gdb)
	aggregator := progress.NewAggregator(categories, entries, logger)

	api := &API{
		db:         gdb,
		tables:     service.NewTableService(gdb),
		categories: categories,
		entries:    entries,
		journal:    journal,
		settings:   service.NewSettingService(gdb),
		aggregator: aggregator,
		logger:     logger.With("component", "http"),
		now:        now,
	}
	api.trackers = newTrackerSessions(trackerConfig{
		aggregate:       aggregator.Aggregate,
		entries:         entries,
		journal:         journal,
		cooldown:        opts.MutationCooldown,
		ttl:             opts.SessionTTL,
		springFrequency: opts.SpringFrequency,
		fps:             opts.FPS,
		logger:          logger,
		now:             now,
	})
	return api
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Close 释放所有追踪会话
func (a *API) Close() {
	a.trackers.closeAll()
}
