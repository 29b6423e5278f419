package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/petallog/internal/db"
	"github.com/petallog/internal/progress"
	"gorm.io/gorm"
)

// DefaultTableTitle 是首次使用时自动创建的进度表标题
const DefaultTableTitle = "我的进度"

// TableService 管理用户的进度表
type TableService struct {
	db *gorm.DB
}

// NewTableService 构造 TableService
func NewTableService(gdb *gorm.DB) *TableService {
	return &TableService{db: gdb}
}

// Create 为用户新建进度表
func (s *TableService) Create(ctx context.Context, ownerID uint, title string) (*db.TrackerTable, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", progress.ErrValidation)
	}
	if ownerID == 0 {
		return nil, fmt.Errorf("%w: owner is required", progress.ErrValidation)
	}

	table := db.TrackerTable{OwnerID: ownerID, Title: title}
	if err := s.db.WithContext(ctx).Create(&table).Error; err != nil {
		return nil, fmt.Errorf("%w: create table: %w", progress.ErrPersistence, err)
	}
	return &table, nil
}

// ListByOwner 返回用户的全部进度表
func (s *TableService) ListByOwner(ctx context.Context, ownerID uint) ([]db.TrackerTable, error) {
	var tables []db.TrackerTable
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id asc").
		Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("%w: list tables: %w", progress.ErrPersistence, err)
	}
	return tables, nil
}

// GetOwned 获取属于 ownerID 的进度表，其他用户的表视为不存在
func (s *TableService) GetOwned(ctx context.Context, tableID, ownerID uint) (*db.TrackerTable, error) {
	var table db.TrackerTable
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&table, tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: table %d", progress.ErrNotFound, tableID)
		}
		return nil, fmt.Errorf("%w: get table: %w", progress.ErrPersistence, err)
	}
	return &table, nil
}

// EnsureDefault 在用户没有任何进度表时创建默认表
func (s *TableService) EnsureDefault(ctx context.Context, ownerID uint, title string) (*db.TrackerTable, error) {
	tables, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(tables) > 0 {
		return &tables[0], nil
	}
	if strings.TrimSpace(title) == "" {
		title = DefaultTableTitle
	}
	return s.Create(ctx, ownerID, title)
}
