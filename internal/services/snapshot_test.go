package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/types"
)

func TestCreateSnapshot_VersionsIncrementPerProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	project, _, err := env.projects.CreateProject(ctx, uuid.New(), "", "iron_pickaxe", 1, nil)
	require.NoError(t, err)

	first, err := env.snapshots.CreateSnapshot(ctx, project.ID, "fresh")
	require.NoError(t, err)
	require.Equal(t, 1, first.Version)

	second, err := env.snapshots.CreateSnapshot(ctx, project.ID, "")
	require.NoError(t, err)
	require.Equal(t, 2, second.Version)

	// Another project starts back at version 1.
	other, _, err := env.projects.CreateProject(ctx, uuid.New(), "", "oak_log", 4, nil)
	require.NoError(t, err)
	otherSnap, err := env.snapshots.CreateSnapshot(ctx, other.ID, "")
	require.NoError(t, err)
	require.Equal(t, 1, otherSnap.Version)

	listed, err := env.snapshots.ListSnapshots(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	require.Equal(t, 2, listed[0].Version, "newest first")
}

func TestRestore_RewindsNodeStateAndReactivatesProject(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := uuid.New()

	project, nodes, err := env.projects.CreateProject(ctx, uuid.New(), "", "oak_log", 4, nil)
	require.NoError(t, err)
	root := nodeByItem(t, nodes, "oak_log")

	snap, err := env.snapshots.CreateSnapshot(ctx, project.ID, "pristine")
	require.NoError(t, err)

	_, _, err = env.contributions.Contribute(ctx, project.ID, root.ID, actor, 4, types.ContributionActionCollected)
	require.NoError(t, err)
	fresh, err := env.nodeRepo.GetByID(ctx, nil, root.ID)
	require.NoError(t, err)
	require.Equal(t, 4, fresh.CollectedQty)

	restored, err := env.snapshots.Restore(ctx, project.ID, snap.Version, actor)
	require.NoError(t, err)
	require.Len(t, restored, 1)

	fresh, err = env.nodeRepo.GetByID(ctx, nil, root.ID)
	require.NoError(t, err)
	require.Equal(t, 0, fresh.CollectedQty, "restore rewinds collected quantities")

	reloaded, _, err := env.projects.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.Equal(t, types.ProjectStatusActive, reloaded.Status)

	rows, err := env.contributionRepo.GetByProjectID(ctx, nil, project.ID)
	require.NoError(t, err)
	restoredRows := 0
	for _, row := range rows {
		if row.Action == types.ContributionActionRestored {
			restoredRows++
			require.Nil(t, row.NodeID, "restore audit row is project-scoped")
		}
	}
	require.Equal(t, 1, restoredRows)
}

func TestRestore_UnknownVersionFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	project, _, err := env.projects.CreateProject(ctx, uuid.New(), "", "oak_log", 4, nil)
	require.NoError(t, err)

	_, err = env.snapshots.Restore(ctx, project.ID, 7, uuid.New())
	require.True(t, apierr.IsCode(err, apierr.CodeNotFound), "missing version: %v", err)
}

func TestCreateSnapshot_RequiresExistingProject(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.snapshots.CreateSnapshot(context.Background(), uuid.New(), "")
	require.True(t, apierr.IsCode(err, apierr.CodeNotFound), "missing project: %v", err)
}
