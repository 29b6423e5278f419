package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petallog/internal/db"
	"github.com/petallog/internal/progress"
	"gorm.io/gorm"
)

// EntryService 是增量记录的只追加存储
// 只暴露插入与按窗口查询，不提供修改或删除
type EntryService struct {
	db *gorm.DB
}

// NewEntryService 构造 EntryService
func NewEntryService(gdb *gorm.DB) *EntryService {
	return &EntryService{db: gdb}
}

// InsertEntry 追加一条增量记录
func (s *EntryService) InsertEntry(ctx context.Context, tableID, categoryID uint, delta int, at time.Time) (*db.Entry, error) {
	if at.IsZero() {
		at = time.Now()
	}
	entry := db.Entry{
		TableID:    tableID,
		CategoryID: categoryID,
		Delta:      delta,
		CreatedAt:  at,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("%w: insert entry: %w", progress.ErrPersistence, err)
	}
	return &entry, nil
}

// QueryEntries 返回窗口内的增量记录，categoryID 为 0 时返回整张表
// 指定的分类已不存在时返回 ErrNotFound
func (s *EntryService) QueryEntries(ctx context.Context, tableID, categoryID uint, window progress.Window) ([]db.Entry, error) {
	gdb := s.db.WithContext(ctx)

	if categoryID != 0 {
		var category db.Category
		if err := gdb.Select("id").Where("table_id = ?", tableID).First(&category, categoryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: category %d", progress.ErrNotFound, categoryID)
			}
			return nil, fmt.Errorf("%w: lookup category: %w", progress.ErrPersistence, err)
		}
	}

	query := gdb.Where("table_id = ? AND created_at >= ? AND created_at < ?", tableID, window.Start, window.End)
	if categoryID != 0 {
		query = query.Where("category_id = ?", categoryID)
	}

	var entries []db.Entry
	if err := query.Order("created_at asc").Order("id asc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("%w: query entries: %w", progress.ErrPersistence, err)
	}
	return entries, nil
}
