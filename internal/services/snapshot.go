package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	rediscache "github.com/craftparty/craftparty-backend/internal/clients/redis"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/repos"
	"github.com/craftparty/craftparty-backend/internal/types"
)

type SnapshotService interface {
	CreateSnapshot(ctx context.Context, projectID uuid.UUID, label string) (*types.PlanSnapshot, error)
	ListSnapshots(ctx context.Context, projectID uuid.UUID) ([]*types.PlanSnapshot, error)
	Restore(ctx context.Context, projectID uuid.UUID, version int, actorID uuid.UUID) ([]*types.CraftingNode, error)
}

type snapshotService struct {
	db               *gorm.DB
	log              *logger.Logger
	projectRepo      repos.ProjectRepo
	nodeRepo         repos.NodeRepo
	contributionRepo repos.ContributionRepo
	snapshotRepo     repos.SnapshotRepo
	progressCache    *rediscache.ProgressCache
}

func NewSnapshotService(
	db *gorm.DB,
	log *logger.Logger,
	projectRepo repos.ProjectRepo,
	nodeRepo repos.NodeRepo,
	contributionRepo repos.ContributionRepo,
	snapshotRepo repos.SnapshotRepo,
	progressCache *rediscache.ProgressCache,
) SnapshotService {
	serviceLog := log.With("service", "SnapshotService")
	return &snapshotService{
		db:               db,
		log:              serviceLog,
		projectRepo:      projectRepo,
		nodeRepo:         nodeRepo,
		contributionRepo: contributionRepo,
		snapshotRepo:     snapshotRepo,
		progressCache:    progressCache,
	}
}

// CreateSnapshot freezes the project's full node set under the next version
// number. Version assignment and the copy happen in one transaction so two
// concurrent snapshots cannot share a version; the unique index backstops
// the race.
func (s *snapshotService) CreateSnapshot(ctx context.Context, projectID uuid.UUID, label string) (*types.PlanSnapshot, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, apierr.NotFound("project")
	}

	var snapshot *types.PlanSnapshot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		nodes, err := s.nodeRepo.GetByProjectID(ctx, tx, projectID)
		if err != nil {
			return err
		}
		payload, err := json.Marshal(nodes)
		if err != nil {
			return err
		}
		maxVersion, err := s.snapshotRepo.MaxVersion(ctx, tx, projectID)
		if err != nil {
			return err
		}
		snapshot = &types.PlanSnapshot{
			ID:        uuid.New(),
			ProjectID: projectID,
			Version:   maxVersion + 1,
			Label:     label,
			Nodes:     datatypes.JSON(payload),
		}
		_, err = s.snapshotRepo.Create(ctx, tx, []*types.PlanSnapshot{snapshot})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Snapshot created", "project", projectID, "version", snapshot.Version, "label", label)
	return snapshot, nil
}

func (s *snapshotService) ListSnapshots(ctx context.Context, projectID uuid.UUID) ([]*types.PlanSnapshot, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, apierr.NotFound("project")
	}
	return s.snapshotRepo.GetByProjectID(ctx, nil, projectID)
}

// Restore bulk-replaces the live node set with the saved copy and appends a
// restored Contribution so the audit trail explains the reset. The project
// goes back to active since restored trees are usually incomplete again.
func (s *snapshotService) Restore(ctx context.Context, projectID uuid.UUID, version int, actorID uuid.UUID) ([]*types.CraftingNode, error) {
	snapshot, err := s.snapshotRepo.GetByProjectAndVersion(ctx, nil, projectID, version)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, apierr.NotFound("snapshot")
	}

	var nodes []*types.CraftingNode
	if err := json.Unmarshal(snapshot.Nodes, &nodes); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.nodeRepo.ReplaceAll(ctx, tx, projectID, nodes); err != nil {
			return err
		}
		if _, err := s.contributionRepo.Create(ctx, tx, []*types.Contribution{{
			ID:        uuid.New(),
			ProjectID: projectID,
			ActorID:   actorID,
			Action:    types.ContributionActionRestored,
		}}); err != nil {
			return err
		}
		return s.projectRepo.UpdateStatus(ctx, tx, projectID, types.ProjectStatusActive)
	})
	if err != nil {
		return nil, err
	}

	s.progressCache.Invalidate(ctx, projectID)
	s.log.Info("Snapshot restored", "project", projectID, "version", version, "nodes", len(nodes))
	return nodes, nil
}
