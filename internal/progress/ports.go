package progress

import (
	"context"
	"time"

	"github.com/petallog/internal/db"
)

// CategoryLister 按 position 升序返回进度表下的分类
type CategoryLister interface {
	ListCategories(ctx context.Context, tableID uint) ([]db.Category, error)
}

// EntryQuerier 查询窗口内的增量记录，categoryID 为 0 表示全部分类
type EntryQuerier interface {
	QueryEntries(ctx context.Context, tableID, categoryID uint, window Window) ([]db.Entry, error)
}

// EntryWriter 追加一条增量记录
type EntryWriter interface {
	InsertEntry(ctx context.Context, tableID, categoryID uint, delta int, at time.Time) (*db.Entry, error)
}

// JournalWriter 追加一条展示用流水
type JournalWriter interface {
	InsertJournalRecord(ctx context.Context, record db.JournalRecord) (*db.JournalRecord, error)
}

// AggregateFunc 是协调器依赖的聚合能力，便于在测试中替换
type AggregateFunc func(ctx context.Context, tableID uint, window Window) ([]CategoryValue, error)
