package repos

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/types"
)

func newRepoTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One pooled connection with immediate write locking: concurrent
	// callers queue on sqlite's single writer instead of erroring busy.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate", filepath.Join(t.TempDir(), "repo_test.db"))
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
	if err := db.AutoMigrate(&types.Project{}, &types.CraftingNode{}, &types.Contribution{}, &types.PlanSnapshot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newRepoTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("logger init: %v", err)
	}
	return log
}

func seedResource(t *testing.T, repo NodeRepo, projectID uuid.UUID, required, collected int) *types.CraftingNode {
	t.Helper()
	node := &types.CraftingNode{
		ID:           uuid.New(),
		ProjectID:    projectID,
		ItemID:       "iron_ingot",
		DisplayName:  "Iron Ingot",
		RequiredQty:  required,
		CollectedQty: collected,
		IsResource:   true,
	}
	_, err := repo.Create(context.Background(), nil, []*types.CraftingNode{node})
	require.NoError(t, err)
	return node
}

func TestAtomicAddClamped_ClampsAndReportsChange(t *testing.T) {
	repo := NewNodeRepo(newRepoTestDB(t), newRepoTestLogger(t))
	ctx := context.Background()
	node := seedResource(t, repo, uuid.New(), 10, 0)

	updated, changed, err := repo.AtomicAddClamped(ctx, nil, node.ID, 4)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 4, updated.CollectedQty)

	updated, changed, err = repo.AtomicAddClamped(ctx, nil, node.ID, 100)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, 10, updated.CollectedQty, "overshoot clamps to required")

	// Already at the cap: the conditional UPDATE matches nothing.
	updated, changed, err = repo.AtomicAddClamped(ctx, nil, node.ID, 1)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 10, updated.CollectedQty)
}

func TestAtomicAddClamped_ConcurrentAddsStopAtRequired(t *testing.T) {
	repo := NewNodeRepo(newRepoTestDB(t), newRepoTestLogger(t))
	ctx := context.Background()
	node := seedResource(t, repo, uuid.New(), 3, 0)

	// 8 racing single-unit adds against required_qty 3: the conditional
	// UPDATE must admit exactly 3 of them no matter how they interleave.
	var moved atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, changed, err := repo.AtomicAddClamped(ctx, nil, node.ID, 1)
			if changed {
				moved.Add(1)
			}
			return err
		})
	}
	require.NoError(t, g.Wait())

	fresh, err := repo.GetByID(ctx, nil, node.ID)
	require.NoError(t, err)
	require.Equal(t, 3, fresh.CollectedQty)
	require.Equal(t, int32(3), moved.Load())
}

func TestAtomicAddClamped_IgnoresCompositeNodes(t *testing.T) {
	db := newRepoTestDB(t)
	repo := NewNodeRepo(db, newRepoTestLogger(t))
	ctx := context.Background()

	composite := &types.CraftingNode{
		ID:          uuid.New(),
		ProjectID:   uuid.New(),
		ItemID:      "stick",
		DisplayName: "Stick",
		RequiredQty: 2,
	}
	_, err := repo.Create(ctx, nil, []*types.CraftingNode{composite})
	require.NoError(t, err)

	updated, changed, err := repo.AtomicAddClamped(ctx, nil, composite.ID, 1)
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, 0, updated.CollectedQty)
}

func TestAtomicMarkCrafted_GuardTracksChildren(t *testing.T) {
	repo := NewNodeRepo(newRepoTestDB(t), newRepoTestLogger(t))
	ctx := context.Background()
	projectID := uuid.New()

	parent := &types.CraftingNode{
		ID:          uuid.New(),
		ProjectID:   projectID,
		ItemID:      "oak_planks",
		DisplayName: "Oak Planks",
		RequiredQty: 2,
	}
	parentID := parent.ID
	child := &types.CraftingNode{
		ID:          uuid.New(),
		ProjectID:   projectID,
		ParentID:    &parentID,
		ItemID:      "oak_log",
		DisplayName: "Oak Log",
		RequiredQty: 1,
		IsResource:  true,
	}
	_, err := repo.Create(ctx, nil, []*types.CraftingNode{parent, child})
	require.NoError(t, err)

	ok, err := repo.AtomicMarkCrafted(ctx, nil, parent.ID)
	require.NoError(t, err)
	require.False(t, ok, "ungathered child must hold the guard")

	_, _, err = repo.AtomicAddClamped(ctx, nil, child.ID, 1)
	require.NoError(t, err)

	ok, err = repo.AtomicMarkCrafted(ctx, nil, parent.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.AtomicMarkCrafted(ctx, nil, parent.ID)
	require.NoError(t, err)
	require.False(t, ok, "second craft is a no-op")
}

func TestAtomicMarkCrafted_UncraftedCompositeChildHoldsGuard(t *testing.T) {
	repo := NewNodeRepo(newRepoTestDB(t), newRepoTestLogger(t))
	ctx := context.Background()
	projectID := uuid.New()

	root := &types.CraftingNode{
		ID: uuid.New(), ProjectID: projectID,
		ItemID: "iron_pickaxe", DisplayName: "Iron Pickaxe", RequiredQty: 1,
	}
	rootID := root.ID
	mid := &types.CraftingNode{
		ID: uuid.New(), ProjectID: projectID, ParentID: &rootID,
		ItemID: "stick", DisplayName: "Stick", RequiredQty: 2, Depth: 1,
	}
	_, err := repo.Create(ctx, nil, []*types.CraftingNode{root, mid})
	require.NoError(t, err)

	ok, err := repo.AtomicMarkCrafted(ctx, nil, root.ID)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = repo.AtomicMarkCrafted(ctx, nil, mid.ID)
	require.NoError(t, err)
	require.True(t, ok, "childless composite is immediately craftable")

	ok, err = repo.AtomicMarkCrafted(ctx, nil, root.ID)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAtomicMarkCrafted_NeverMatchesResources(t *testing.T) {
	repo := NewNodeRepo(newRepoTestDB(t), newRepoTestLogger(t))
	ctx := context.Background()
	node := seedResource(t, repo, uuid.New(), 1, 1)

	ok, err := repo.AtomicMarkCrafted(ctx, nil, node.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReplaceAll_SwapsProjectNodeSet(t *testing.T) {
	repo := NewNodeRepo(newRepoTestDB(t), newRepoTestLogger(t))
	ctx := context.Background()
	projectID := uuid.New()

	old := seedResource(t, repo, projectID, 5, 5)
	replacement := &types.CraftingNode{
		ID:          old.ID,
		ProjectID:   projectID,
		ItemID:      old.ItemID,
		DisplayName: old.DisplayName,
		RequiredQty: 5,
		IsResource:  true,
	}
	require.NoError(t, repo.ReplaceAll(ctx, nil, projectID, []*types.CraftingNode{replacement}))

	nodes, err := repo.GetByProjectID(ctx, nil, projectID)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	require.Equal(t, 0, nodes[0].CollectedQty)
}

func TestGetByProjectID_OrdersByDepth(t *testing.T) {
	repo := NewNodeRepo(newRepoTestDB(t), newRepoTestLogger(t))
	ctx := context.Background()
	projectID := uuid.New()

	deep := &types.CraftingNode{
		ID: uuid.New(), ProjectID: projectID,
		ItemID: "oak_log", DisplayName: "Oak Log", RequiredQty: 1, IsResource: true, Depth: 3,
	}
	root := &types.CraftingNode{
		ID: uuid.New(), ProjectID: projectID,
		ItemID: "iron_pickaxe", DisplayName: "Iron Pickaxe", RequiredQty: 1, Depth: 0,
	}
	_, err := repo.Create(ctx, nil, []*types.CraftingNode{deep, root})
	require.NoError(t, err)

	nodes, err := repo.GetByProjectID(ctx, nil, projectID)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	require.Equal(t, 0, nodes[0].Depth)

	missing, err := repo.GetByID(ctx, nil, uuid.New())
	require.NoError(t, err)
	require.Nil(t, missing)
}
