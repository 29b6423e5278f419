package progress

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/petallog/internal/db"
	"golang.org/x/sync/errgroup"
)

const defaultQueryConcurrency = 4

// CategoryValue 是聚合结果中的一行：分类元数据加窗口内的合计值
type CategoryValue struct {
	CategoryID uint
	Title      string
	Color      string
	Max        *int
	Position   int
	Value      int
}

// Aggregator 把增量日志折叠成每个分类的合计值
type Aggregator struct {
	categories  CategoryLister
	entries     EntryQuerier
	logger      *slog.Logger
	concurrency int
}

// NewAggregator 构造 Aggregator，logger 为空时使用默认 logger
func NewAggregator(categories CategoryLister, entries EntryQuerier, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		categories:  categories,
		entries:     entries,
		logger:      logger.With("component", "aggregator"),
		concurrency: defaultQueryConcurrency,
	}
}

// Aggregate 返回窗口内每个分类的合计值，按 position、id 升序
// 单个分类的记录查询失败时记 0 并继续；分类在查询期间被删除则从结果中剔除
func (a *Aggregator) Aggregate(ctx context.Context, tableID uint, window Window) ([]CategoryValue, error) {
	categories, err := a.categories.ListCategories(ctx, tableID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	type slot struct {
		entries []db.Entry
		missing bool
	}
	slots := make([]slot, len(categories))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, category := range categories {
		g.Go(func() error {
			entries, err := a.entries.QueryEntries(ctx, tableID, category.ID, window)
			switch {
			case err == nil:
				slots[i].entries = entries
			case errors.Is(err, ErrNotFound):
				slots[i].missing = true
			case ctx.Err() != nil:
				// 窗口已被替换，结果会被整体丢弃
			default:
				a.logger.WarnContext(ctx, "entry query failed, reporting zero",
					"table_id", tableID,
					"category_id", category.ID,
					"window", window.String(),
					"error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	present := make([]db.Category, 0, len(categories))
	var entries []db.Entry
	for i, category := range categories {
		if slots[i].missing {
			continue
		}
		present = append(present, category)
		entries = append(entries, slots[i].entries...)
	}

	return Fold(present, entries, window), nil
}

// Fold 是纯函数：对窗口内、属于给定分类的记录求和，无记录的分类取 0
// 不属于任何给定分类的记录（例如分类已删除）被忽略
func Fold(categories []db.Category, entries []db.Entry, window Window) []CategoryValue {
	sums := make(map[uint]int, len(categories))
	for _, category := range categories {
		sums[category.ID] = 0
	}

	for _, entry := range entries {
		if !window.Contains(entry.CreatedAt) {
			continue
		}
		if _, ok := sums[entry.CategoryID]; !ok {
			continue
		}
		sums[entry.CategoryID] += entry.Delta
	}

	values := make([]CategoryValue, 0, len(categories))
	for _, category := range categories {
		values = append(values, CategoryValue{
			CategoryID: category.ID,
			Title:      category.Title,
			Color:      category.Color,
			Max:        copyMax(category.Max),
			Position:   category.Position,
			Value:      sums[category.ID],
		})
	}

	SortValues(values)
	return values
}

// SortValues 按 position 升序排序，相同时按 id
func SortValues(values []CategoryValue) {
	slices.SortStableFunc(values, func(a, b CategoryValue) int {
		if diff := cmp.Compare(a.Position, b.Position); diff != 0 {
			return diff
		}
		return cmp.Compare(a.CategoryID, b.CategoryID)
	})
}

func copyMax(max *int) *int {
	if max == nil {
		return nil
	}
	v := *max
	return &v
}
