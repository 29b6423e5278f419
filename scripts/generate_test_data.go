package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/petallog/internal/config"
	"github.com/petallog/internal/db"
	"github.com/petallog/internal/progress"
	"github.com/petallog/internal/service"
	"gorm.io/gorm"
)

type seedCategory struct {
	title       string
	description string
	max         *int
}

func intPtr(v int) *int {
	return &v
}

var seedCategories = []seedCategory{
	{title: "跑步", description: "每次 **1 公里** 记 1 分", max: intPtr(5)},
	{title: "阅读", description: "每 30 分钟记 1 分"},
	{title: "冥想", description: "早晚各一次", max: intPtr(3)},
	{title: "写作", max: intPtr(4)},
	{title: "早睡", description: "23 点前上床", max: intPtr(1)},
}

// stepClock 每次读取前进一秒，让协调器的冷却期在批量写入时自然过期
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// 测试数据生成器
func main() {
	days := flag.Int("days", 7, "number of days to seed, ending today")
	seed := flag.Uint64("seed", 42, "random seed")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	username := cfg.SuperRootUserName
	password := cfg.SuperRootPassword
	if username == "" || password == "" {
		username, password = "admin", "admin123"
	}
	if _, err := db.EnsureUser(db.DB, username, password); err != nil {
		log.Fatal("创建用户失败:", err)
	}

	fmt.Println("开始生成测试数据...")
	table, err := seedTracker(context.Background(), db.DB, username, *days, *seed, time.Now())
	if err != nil {
		log.Fatal("生成测试数据失败:", err)
	}

	fmt.Println("测试数据生成完成！")
	fmt.Printf("用户: %s\n", username)
	fmt.Printf("进度表: %s (#%d)\n", table.Title, table.ID)
	fmt.Printf("分类: %d 个，覆盖最近 %d 天\n", len(seedCategories), *days)
}

// seedTracker 为用户的默认进度表补齐示例分类，并经由协调器写入最近若干天的记录
// 表内已有分类时不做任何写入
func seedTracker(ctx context.Context, gdb *gorm.DB, username string, days int, seed uint64, now time.Time) (*db.TrackerTable, error) {
	var user db.User
	if err := gdb.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user %q: %w", username, err)
	}

	tables := service.NewTableService(gdb)
	categories := service.NewCategoryService(gdb)
	entries := service.NewEntryService(gdb)
	journal := service.NewJournalService(gdb)

	table, err := tables.EnsureDefault(ctx, user.ID, service.DefaultTableTitle)
	if err != nil {
		return nil, err
	}
	existing, err := categories.ListCategories(ctx, table.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		fmt.Println("分类已存在，跳过创建")
		return table, nil
	}

	for _, sc := range seedCategories {
		if _, err := categories.Create(ctx, table.ID, service.CategoryInput{
			Title:       sc.title,
			Description: sc.description,
			Max:         sc.max,
		}); err != nil {
			return nil, err
		}
	}

	clock := &stepClock{now: now}
	aggregator := progress.NewAggregator(categories, entries, slog.Default())
	coordinator := progress.NewCoordinator(table.ID, aggregator.Aggregate, entries, journal,
		progress.DayWindow(now), progress.CoordinatorOptions{Now: clock.Now})
	defer coordinator.Close()

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for offset := days - 1; offset >= 0; offset-- {
		if err := coordinator.SetWindow(progress.DayWindow(now.AddDate(0, 0, -offset))); err != nil {
			return nil, err
		}
		for _, v := range coordinator.Snapshot().Values {
			bound := 4
			if v.Max != nil {
				bound = *v.Max
			}
			delta := rng.IntN(bound + 1)
			if delta == 0 {
				continue
			}
			err := coordinator.Apply(ctx, v.CategoryID, delta)
			if err != nil && !errors.Is(err, progress.ErrNoChange) {
				return nil, err
			}
		}
		coordinator.Wait()
	}
	return table, nil
}
