package db

import "gorm.io/gorm"

// TrackerSetting 存储进度图相关的键值配置。
type TrackerSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (TrackerSetting) TableName() string {
	return "tracker_settings"
}

const (
	// SettingKeyChartSize 表示花瓣图默认边长（像素）。
	SettingKeyChartSize = "chart_size"
	// SettingKeyPetalInnerRatio 表示花心半径占外半径的比例。
	SettingKeyPetalInnerRatio = "petal_inner_ratio"
)
