package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/petallog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file:tracker-seed?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := gdb.AutoMigrate(db.Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	if _, err := db.EnsureUser(gdb, "admin", "admin123"); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return gdb
}

func TestSeedTrackerRespectsBounds(t *testing.T) {
	gdb := setupSeedTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.Local)

	table, err := seedTracker(ctx, gdb, "admin", 7, 7, now)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	var categories []db.Category
	if err := gdb.Where("table_id = ?", table.ID).Find(&categories).Error; err != nil {
		t.Fatalf("failed to list categories: %v", err)
	}
	if len(categories) != len(seedCategories) {
		t.Fatalf("expected %d categories, got %d", len(seedCategories), len(categories))
	}

	var entries []db.Entry
	if err := gdb.Where("table_id = ?", table.ID).Find(&entries).Error; err != nil {
		t.Fatalf("failed to list entries: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected seeded entries")
	}

	earliest := time.Date(2025, 3, 4, 0, 0, 0, 0, time.Local)
	latest := time.Date(2025, 3, 11, 0, 0, 0, 0, time.Local)
	maxByID := make(map[uint]*int, len(categories))
	for _, c := range categories {
		maxByID[c.ID] = c.Max
	}

	sums := make(map[string]int)
	for _, e := range entries {
		if e.CreatedAt.Before(earliest) || !e.CreatedAt.Before(latest) {
			t.Fatalf("entry stamped outside seeded days: %v", e.CreatedAt)
		}
		if e.Delta <= 0 {
			t.Fatalf("expected positive deltas, got %d", e.Delta)
		}
		key := fmt.Sprintf("%s/%d", e.CreatedAt.Local().Format("2006-01-02"), e.CategoryID)
		sums[key] += e.Delta
		if limit := maxByID[e.CategoryID]; limit != nil && sums[key] > *limit {
			t.Fatalf("daily sum %d exceeds max %d for category %d", sums[key], *limit, e.CategoryID)
		}
	}

	var journal int64
	gdb.Model(&db.JournalRecord{}).Where("table_id = ?", table.ID).Count(&journal)
	if journal != int64(len(entries)) {
		t.Fatalf("expected one journal record per entry, got %d vs %d", journal, len(entries))
	}

	// 再次执行不会重复写入
	if _, err := seedTracker(ctx, gdb, "admin", 7, 7, now); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	var after int64
	gdb.Model(&db.Entry{}).Where("table_id = ?", table.ID).Count(&after)
	if after != int64(len(entries)) {
		t.Fatalf("expected idempotent seed, got %d entries after rerun", after)
	}
}
