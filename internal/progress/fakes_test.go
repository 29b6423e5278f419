package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/petallog/internal/db"
)

var errStoreDown = errors.New("store down")

// memStore 是测试用的内存日志，可按分类注入查询失败
type memStore struct {
	mu          sync.Mutex
	categories  []db.Category
	entries     []db.Entry
	journal     []db.JournalRecord
	failQuery   map[uint]error
	failInsert  error
	failJournal error
	nextID      uint
}

func newMemStore(categories ...db.Category) *memStore {
	return &memStore{categories: categories, failQuery: map[uint]error{}}
}

func (s *memStore) ListCategories(_ context.Context, tableID uint) ([]db.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]db.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if c.TableID == tableID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memStore) QueryEntries(_ context.Context, tableID, categoryID uint, window Window) ([]db.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failQuery[categoryID]; ok {
		return nil, err
	}
	var out []db.Entry
	for _, e := range s.entries {
		if e.TableID != tableID || (categoryID != 0 && e.CategoryID != categoryID) {
			continue
		}
		if window.Contains(e.CreatedAt) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) InsertEntry(_ context.Context, tableID, categoryID uint, delta int, at time.Time) (*db.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert != nil {
		return nil, s.failInsert
	}
	s.nextID++
	entry := db.Entry{ID: s.nextID, TableID: tableID, CategoryID: categoryID, Delta: delta, CreatedAt: at}
	s.entries = append(s.entries, entry)
	return &entry, nil
}

func (s *memStore) InsertJournalRecord(_ context.Context, record db.JournalRecord) (*db.JournalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failJournal != nil {
		return nil, s.failJournal
	}
	s.nextID++
	record.ID = s.nextID
	s.journal = append(s.journal, record)
	return &record, nil
}

func (s *memStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *memStore) journalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.journal)
}

func (s *memStore) persistedSum(categoryID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := 0
	for _, e := range s.entries {
		if e.CategoryID == categoryID {
			sum += e.Delta
		}
	}
	return sum
}

func intPtr(v int) *int {
	return &v
}

// fakeClock 是可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
