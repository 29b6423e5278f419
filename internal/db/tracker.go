package db

import (
	"time"

	"gorm.io/gorm"
)

// TrackerTable 是进度追踪的容器，每个表只属于一个用户
type TrackerTable struct {
	gorm.Model
	OwnerID uint   `gorm:"index;not null"`
	Title   string `gorm:"size:120;not null"`
}

// TableName 避免与 SQL 关键字 table 混淆
func (TrackerTable) TableName() string {
	return "tracker_tables"
}

// Category 描述一个可追踪的目标
// Max 为空表示不设上限，展示时与同表其他分类共享比例尺
// Position 显式决定展示顺序，不依赖创建时间
type Category struct {
	ID          uint   `gorm:"primaryKey"`
	TableID     uint   `gorm:"index;not null"`
	Title       string `gorm:"size:120;not null"`
	Description string `gorm:"type:text"`
	Max         *int
	Color       string `gorm:"size:16"`
	Position    int    `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Entry 是一条不可变的积分增量记录
// 只追加，不提供更新与删除；分类删除后对应记录保留在日志中
type Entry struct {
	ID         uint      `gorm:"primaryKey"`
	TableID    uint      `gorm:"index:idx_entries_window,priority:1;not null"`
	CategoryID uint      `gorm:"index;not null"`
	Delta      int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"index:idx_entries_window,priority:2;not null"`
}

// JournalRecord 是每次成功变更的展示用流水，不作为统计依据
type JournalRecord struct {
	ID         uint      `gorm:"primaryKey"`
	TableID    uint      `gorm:"index;not null"`
	Date       time.Time `gorm:"index"`
	CategoryID *uint
	Text       string `gorm:"type:text"`
	Points     int
	CreatedAt  time.Time `gorm:"index"`
}

// TableName 指定自定义表名
func (JournalRecord) TableName() string {
	return "journal_records"
}
