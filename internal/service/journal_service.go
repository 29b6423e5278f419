package service

import (
	"context"
	"fmt"
	"time"

	"github.com/petallog/internal/db"
	"github.com/petallog/internal/progress"
	"gorm.io/gorm"
)

// JournalService 存储展示用流水
type JournalService struct {
	db *gorm.DB
}

// JournalItem 是带渲染结果的流水
type JournalItem struct {
	db.JournalRecord
	TextHTML string
}

// NewJournalService 构造 JournalService
func NewJournalService(gdb *gorm.DB) *JournalService {
	return &JournalService{db: gdb}
}

// InsertJournalRecord 追加一条流水
func (s *JournalService) InsertJournalRecord(ctx context.Context, record db.JournalRecord) (*db.JournalRecord, error) {
	record.ID = 0
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.Date.IsZero() {
		y, m, d := record.CreatedAt.Date()
		record.Date = time.Date(y, m, d, 0, 0, 0, 0, record.CreatedAt.Location())
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("%w: insert journal: %w", progress.ErrPersistence, err)
	}
	return &record, nil
}

// QueryJournal 返回窗口内的流水，按时间倒序
func (s *JournalService) QueryJournal(ctx context.Context, tableID uint, window progress.Window) ([]JournalItem, error) {
	var records []db.JournalRecord
	if err := s.db.WithContext(ctx).
		Where("table_id = ? AND created_at >= ? AND created_at < ?", tableID, window.Start, window.End).
		Order("created_at desc").
		Order("id desc").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("%w: query journal: %w", progress.ErrPersistence, err)
	}

	items := make([]JournalItem, 0, len(records))
	for _, record := range records {
		rendered, err := RenderMarkdown(record.Text)
		if err != nil {
			rendered = ""
		}
		items = append(items, JournalItem{JournalRecord: record, TextHTML: rendered})
	}
	return items, nil
}
