package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/microcosm-cc/bluemonday"
	"github.com/petallog/internal/db"
	"github.com/petallog/internal/progress"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"gorm.io/gorm"
)

// DefaultPalette 是分类未指定颜色时按数量轮换的调色板
var DefaultPalette = []string{
	"#f26b6b",
	"#f5a35c",
	"#f2d15c",
	"#7bc96f",
	"#4fb3bf",
	"#5c8df2",
	"#9b6cf0",
	"#e06cc4",
}

var (
	markdownOnce   sync.Once
	markdownEngine goldmark.Markdown
	htmlSanitizer  *bluemonday.Policy
)

func markdownTools() (goldmark.Markdown, *bluemonday.Policy) {
	markdownOnce.Do(func() {
		markdownEngine = goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
		)
		htmlSanitizer = bluemonday.UGCPolicy()
	})
	return markdownEngine, htmlSanitizer
}

// RenderMarkdown 将 Markdown 渲染为经过清洗的 HTML
func RenderMarkdown(source string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", nil
	}
	engine, policy := markdownTools()
	var buf bytes.Buffer
	if err := engine.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return policy.Sanitize(buf.String()), nil
}

// CategoryInput 定义创建/更新分类时可配置字段
// Position 为空时追加到末尾（创建）或保持不变（更新）
type CategoryInput struct {
	Title       string
	Description string
	Max         *int
	Color       string
	Position    *int
}

// CategoryService 管理分类元数据，不触碰增量记录
type CategoryService struct {
	db *gorm.DB
}

// NewCategoryService 构造 CategoryService
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// ListCategories 按 position、id 升序返回进度表下的分类
func (s *CategoryService) ListCategories(ctx context.Context, tableID uint) ([]db.Category, error) {
	var categories []db.Category
	if err := s.db.WithContext(ctx).
		Where("table_id = ?", tableID).
		Order("position asc").
		Order("id asc").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("%w: list categories: %w", progress.ErrPersistence, err)
	}
	return categories, nil
}

// Get 获取指定进度表下的分类
func (s *CategoryService) Get(ctx context.Context, tableID, id uint) (*db.Category, error) {
	var category db.Category
	if err := s.db.WithContext(ctx).Where("table_id = ?", tableID).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: category %d", progress.ErrNotFound, id)
		}
		return nil, fmt.Errorf("%w: get category: %w", progress.ErrPersistence, err)
	}
	return &category, nil
}

// Create 新建分类，颜色缺省时按已有分类数量从调色板取色
func (s *CategoryService) Create(ctx context.Context, tableID uint, input CategoryInput) (*db.Category, error) {
	title, err := validateCategoryInput(input)
	if err != nil {
		return nil, err
	}
	color, err := normalizeColor(input.Color)
	if err != nil {
		return nil, err
	}

	var category db.Category
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&db.Category{}).Where("table_id = ?", tableID).Count(&count).Error; err != nil {
			return err
		}
		if color == "" {
			color = DefaultPalette[int(count)%len(DefaultPalette)]
		}

		position := 0
		if input.Position != nil {
			position = *input.Position
		} else {
			var maxPos int
			if err := tx.Model(&db.Category{}).
				Where("table_id = ?", tableID).
				Select("COALESCE(MAX(position), -1)").
				Scan(&maxPos).Error; err != nil {
				return err
			}
			position = maxPos + 1
		}

		category = db.Category{
			TableID:     tableID,
			Title:       title,
			Description: strings.TrimSpace(input.Description),
			Max:         input.Max,
			Color:       color,
			Position:    position,
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create category: %w", progress.ErrPersistence, err)
	}
	return &category, nil
}

// Update 修改分类元数据；Max 置空表示取消上限
func (s *CategoryService) Update(ctx context.Context, tableID, id uint, input CategoryInput) (*db.Category, error) {
	title, err := validateCategoryInput(input)
	if err != nil {
		return nil, err
	}
	color, err := normalizeColor(input.Color)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, tableID, id)
	if err != nil {
		return nil, err
	}

	existing.Title = title
	existing.Description = strings.TrimSpace(input.Description)
	existing.Max = input.Max
	if color != "" {
		existing.Color = color
	}
	if input.Position != nil {
		existing.Position = *input.Position
	}

	if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, fmt.Errorf("%w: update category: %w", progress.ErrPersistence, err)
	}
	return existing, nil
}

// Delete 删除分类，保留其增量记录与流水
func (s *CategoryService) Delete(ctx context.Context, tableID, id uint) error {
	result := s.db.WithContext(ctx).Where("table_id = ?", tableID).Delete(&db.Category{}, id)
	if result.Error != nil {
		return fmt.Errorf("%w: delete category: %w", progress.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: category %d", progress.ErrNotFound, id)
	}
	return nil
}

// Reorder 按 ids 顺序重写 position
func (s *CategoryService) Reorder(ctx context.Context, tableID uint, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			return fmt.Errorf("%w: category id is required", progress.ErrValidation)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: duplicate category %d", progress.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for idx, id := range ids {
			result := tx.Model(&db.Category{}).
				Where("id = ? AND table_id = ?", id, tableID).
				Update("position", idx)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: category %d", progress.ErrNotFound, id)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: reorder categories: %w", progress.ErrPersistence, err)
	}
	return nil
}

func validateCategoryInput(input CategoryInput) (string, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", progress.ErrValidation)
	}
	if input.Max != nil && *input.Max <= 0 {
		return "", fmt.Errorf("%w: max must be positive", progress.ErrValidation)
	}
	return title, nil
}

// normalizeColor 校验并规范化十六进制颜色，空字符串表示使用调色板
func normalizeColor(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, "#") {
		raw = "#" + raw
	}
	c, err := colorful.Hex(raw)
	if err != nil {
		return "", fmt.Errorf("%w: invalid color %q", progress.ErrValidation, raw)
	}
	return c.Hex(), nil
}
