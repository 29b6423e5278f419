package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/petallog/internal/db"
	"github.com/petallog/internal/progress"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultChartSize       = 360
	MinChartSize           = 120
	MaxChartSize           = 1200
	DefaultPetalInnerRatio = 0.18
	MinPetalInnerRatio     = 0.05
	MaxPetalInnerRatio     = 0.6
)

// TrackerSettings 描述花瓣图的可配置项。
type TrackerSettings struct {
	ChartSize       int
	PetalInnerRatio float64
}

// TrackerSettingsInput 用于更新设置，字段为空表示保持原值。
type TrackerSettingsInput struct {
	ChartSize       *int
	PetalInnerRatio *float64
}

// SettingService 提供进度图设置的读取与更新能力。
type SettingService struct {
	db *gorm.DB
}

// NewSettingService 构造 SettingService。
func NewSettingService(gdb *gorm.DB) *SettingService {
	return &SettingService{db: gdb}
}

var trackerSettingKeys = []string{
	db.SettingKeyChartSize,
	db.SettingKeyPetalInnerRatio,
}

// Get 读取设置，未设置或无法解析时返回默认值。
func (s *SettingService) Get(ctx context.Context) (TrackerSettings, error) {
	result := TrackerSettings{ChartSize: DefaultChartSize, PetalInnerRatio: DefaultPetalInnerRatio}

	var records []db.TrackerSetting
	if err := s.db.WithContext(ctx).Where("key IN ?", trackerSettingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("%w: load settings: %w", progress.ErrPersistence, err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		switch record.Key {
		case db.SettingKeyChartSize:
			if n, err := strconv.Atoi(value); err == nil {
				result.ChartSize = ClampChartSize(n)
			}
		case db.SettingKeyPetalInnerRatio:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				result.PetalInnerRatio = clampRatio(f)
			}
		}
	}
	return result, nil
}

// Update 保存设置，超出范围的值会被钳制。
func (s *SettingService) Update(ctx context.Context, input TrackerSettingsInput) (TrackerSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return TrackerSettings{}, err
	}
	if input.ChartSize != nil {
		current.ChartSize = ClampChartSize(*input.ChartSize)
	}
	if input.PetalInnerRatio != nil {
		current.PetalInnerRatio = clampRatio(*input.PetalInnerRatio)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertSetting(tx, db.SettingKeyChartSize, strconv.Itoa(current.ChartSize)); err != nil {
			return err
		}
		return upsertSetting(tx, db.SettingKeyPetalInnerRatio, strconv.FormatFloat(current.PetalInnerRatio, 'f', -1, 64))
	})
	if err != nil {
		return TrackerSettings{}, fmt.Errorf("%w: update settings: %w", progress.ErrPersistence, err)
	}
	return current, nil
}

// ClampChartSize 将边长限制在允许范围内，非正数回退默认值。
func ClampChartSize(size int) int {
	switch {
	case size <= 0:
		return DefaultChartSize
	case size < MinChartSize:
		return MinChartSize
	case size > MaxChartSize:
		return MaxChartSize
	}
	return size
}

func clampRatio(ratio float64) float64 {
	switch {
	case ratio <= 0:
		return DefaultPetalInnerRatio
	case ratio < MinPetalInnerRatio:
		return MinPetalInnerRatio
	case ratio > MaxPetalInnerRatio:
		return MaxPetalInnerRatio
	}
	return ratio
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.TrackerSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}
