package progress

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/petallog/internal/db"
)

func TestAggregateSumsWindowAndSynthesizesZeroRows(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	store := newMemStore(
		db.Category{ID: 1, TableID: 7, Title: "跑步", Position: 1},
		db.Category{ID: 2, TableID: 7, Title: "阅读", Position: 0, Max: intPtr(5)},
		db.Category{ID: 3, TableID: 7, Title: "冥想", Position: 1},
	)
	store.entries = []db.Entry{
		{ID: 1, TableID: 7, CategoryID: 1, Delta: 2, CreatedAt: day.Add(8 * time.Hour)},
		{ID: 2, TableID: 7, CategoryID: 1, Delta: 1, CreatedAt: day.Add(20 * time.Hour)},
		{ID: 3, TableID: 7, CategoryID: 2, Delta: 4, CreatedAt: day.Add(-time.Hour)},
		{ID: 4, TableID: 7, CategoryID: 99, Delta: 9, CreatedAt: day.Add(time.Hour)},
	}

	agg := NewAggregator(store, store, nil)
	values, err := agg.Aggregate(context.Background(), 7, DayWindow(day))
	if err != nil {
		t.Fatalf("Aggregate returned error: %v", err)
	}

	if len(values) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(values))
	}

	gotOrder := []uint{values[0].CategoryID, values[1].CategoryID, values[2].CategoryID}
	if !reflect.DeepEqual(gotOrder, []uint{2, 1, 3}) {
		t.Fatalf("expected position then id order, got %v", gotOrder)
	}

	if values[0].Value != 0 {
		t.Fatalf("entry outside window should not count, got %d", values[0].Value)
	}
	if values[1].Value != 3 {
		t.Fatalf("expected 3 for 跑步, got %d", values[1].Value)
	}
	if values[2].Value != 0 {
		t.Fatalf("category without entries should report 0, got %d", values[2].Value)
	}
	if values[0].Max == nil || *values[0].Max != 5 {
		t.Fatalf("expected max metadata to be joined, got %v", values[0].Max)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	store := newMemStore(
		db.Category{ID: 1, TableID: 1, Title: "A"},
		db.Category{ID: 2, TableID: 1, Title: "B", Max: intPtr(3)},
	)
	store.entries = []db.Entry{
		{ID: 1, TableID: 1, CategoryID: 1, Delta: 2, CreatedAt: day.Add(time.Hour)},
		{ID: 2, TableID: 1, CategoryID: 2, Delta: 3, CreatedAt: day.Add(2 * time.Hour)},
		{ID: 3, TableID: 1, CategoryID: 2, Delta: -1, CreatedAt: day.Add(3 * time.Hour)},
	}

	agg := NewAggregator(store, store, nil)
	first, err := agg.Aggregate(context.Background(), 1, DayWindow(day))
	if err != nil {
		t.Fatalf("first Aggregate returned error: %v", err)
	}
	second, err := agg.Aggregate(context.Background(), 1, DayWindow(day))
	if err != nil {
		t.Fatalf("second Aggregate returned error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregation is not idempotent:\n%v\n%v", first, second)
	}
}

func TestAggregateToleratesPartialFailure(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	store := newMemStore(
		db.Category{ID: 1, TableID: 1, Title: "A"},
		db.Category{ID: 2, TableID: 1, Title: "B"},
		db.Category{ID: 3, TableID: 1, Title: "C"},
	)
	store.entries = []db.Entry{
		{ID: 1, TableID: 1, CategoryID: 1, Delta: 2, CreatedAt: day.Add(time.Hour)},
		{ID: 2, TableID: 1, CategoryID: 2, Delta: 5, CreatedAt: day.Add(time.Hour)},
	}
	store.failQuery[2] = errStoreDown
	store.failQuery[3] = ErrNotFound

	agg := NewAggregator(store, store, nil)
	values, err := agg.Aggregate(context.Background(), 1, DayWindow(day))
	if err != nil {
		t.Fatalf("Aggregate should degrade instead of failing: %v", err)
	}

	if len(values) != 2 {
		t.Fatalf("vanished category should be excluded, got %d rows", len(values))
	}
	if values[0].Value != 2 {
		t.Fatalf("healthy category should keep its sum, got %d", values[0].Value)
	}
	if values[1].CategoryID != 2 || values[1].Value != 0 {
		t.Fatalf("failed category should report zero, got %+v", values[1])
	}
}

func TestAggregateReturnsContextError(t *testing.T) {
	store := newMemStore(db.Category{ID: 1, TableID: 1, Title: "A"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agg := NewAggregator(store, store, nil)
	if _, err := agg.Aggregate(ctx, 1, DayWindow(time.Now())); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFoldIgnoresOrphanedEntries(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)
	categories := []db.Category{{ID: 1, TableID: 1, Title: "A"}}
	entries := []db.Entry{
		{CategoryID: 1, Delta: 1, CreatedAt: day.Add(time.Minute)},
		{CategoryID: 2, Delta: 10, CreatedAt: day.Add(time.Minute)},
	}

	values := Fold(categories, entries, DayWindow(day))
	if len(values) != 1 || values[0].Value != 1 {
		t.Fatalf("unexpected fold result: %+v", values)
	}
}
