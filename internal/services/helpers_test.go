package services

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/craftparty/craftparty-backend/internal/catalog"
	rediscache "github.com/craftparty/craftparty-backend/internal/clients/redis"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/repos"
	"github.com/craftparty/craftparty-backend/internal/types"
)

// testEnv wires the full service stack against a throwaway sqlite file, no
// redis.
type testEnv struct {
	db               *gorm.DB
	projects         ProjectService
	contributions    ContributionService
	analytics        AnalyticsService
	snapshots        SnapshotService
	projectRepo      repos.ProjectRepo
	nodeRepo         repos.NodeRepo
	contributionRepo repos.ContributionRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, cache *rediscache.ProgressCache) *testEnv {
	t.Helper()
	log := newTestLogger(t)
	db := newTestDB(t)
	projectRepo := repos.NewProjectRepo(db, log)
	nodeRepo := repos.NewNodeRepo(db, log)
	contributionRepo := repos.NewContributionRepo(db, log)
	snapshotRepo := repos.NewSnapshotRepo(db, log)
	treeSvc := NewTreeService(log, newPickaxeCatalog())
	return &testEnv{
		db:               db,
		projects:         NewProjectService(db, log, treeSvc, projectRepo, nodeRepo, contributionRepo, snapshotRepo, cache),
		contributions:    NewContributionService(db, log, projectRepo, nodeRepo, contributionRepo, cache),
		analytics:        NewAnalyticsService(db, log, projectRepo, nodeRepo, cache),
		snapshots:        NewSnapshotService(db, log, projectRepo, nodeRepo, contributionRepo, snapshotRepo, cache),
		projectRepo:      projectRepo,
		nodeRepo:         nodeRepo,
		contributionRepo: contributionRepo,
	}
}

// newCachedTestEnv backs the progress cache with an in-process redis so
// invalidation behavior is observable.
func newCachedTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := miniredis.RunT(t)
	t.Setenv("REDIS_ADDR", srv.Addr())
	cache, err := rediscache.NewProgressCache(newTestLogger(t))
	if err != nil {
		t.Fatalf("progress cache init: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return newTestEnvWithCache(t, cache)
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Immediate write transactions plus a single pooled connection keep
	// concurrent contributors queued instead of failing with a busy error;
	// sqlite only ever allows one writer anyway.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", filepath.Join(t.TempDir(), "test.db"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("raw db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&types.Project{},
		&types.CraftingNode{},
		&types.Contribution{},
		&types.PlanSnapshot{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newPickaxeCatalog is the shared recipe fixture: an iron pickaxe made of 3
// iron ingots (raw here) and 2 sticks, with sticks crafted 4-at-a-time from
// planks and planks 4-at-a-time from logs.
func newPickaxeCatalog() catalog.Catalog {
	items := []catalog.Item{
		{ID: "oak_log", DisplayName: "Oak Log"},
		{ID: "iron_ingot", DisplayName: "Iron Ingot"},
		{ID: "oak_planks", DisplayName: "Oak Planks", Recipe: &catalog.Recipe{
			OutputCount: 4,
			Ingredients: []catalog.Ingredient{{Item: "oak_log", Qty: 1}},
		}},
		{ID: "stick", DisplayName: "Stick", Recipe: &catalog.Recipe{
			OutputCount: 4,
			Ingredients: []catalog.Ingredient{{Item: "oak_planks", Qty: 2}},
		}},
		{ID: "iron_pickaxe", DisplayName: "Iron Pickaxe", Recipe: &catalog.Recipe{
			OutputCount: 1,
			Ingredients: []catalog.Ingredient{{Item: "iron_ingot", Qty: 3}, {Item: "stick", Qty: 2}},
		}},
	}
	enchants := []catalog.Enchantment{
		{ID: "sharpness", DisplayName: "Sharpness", MaxLevel: 5, MaxTableLevel: 4},
		{ID: "mending", DisplayName: "Mending", MaxLevel: 1, MaxTableLevel: 0,
			Strategy: "Fish or trade for it, the table never rolls it."},
	}
	return catalog.New(items, enchants)
}

func nodeByItem(t *testing.T, nodes []*types.CraftingNode, itemID string) *types.CraftingNode {
	t.Helper()
	for _, node := range nodes {
		if node.ItemID == itemID {
			return node
		}
	}
	t.Fatalf("no node for item %q", itemID)
	return nil
}
