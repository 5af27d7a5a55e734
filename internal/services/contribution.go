package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	rediscache "github.com/craftparty/craftparty-backend/internal/clients/redis"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/repos"
	"github.com/craftparty/craftparty-backend/internal/types"
)

type ContributionService interface {
	Contribute(ctx context.Context, projectID, nodeID, actorID uuid.UUID, quantity int, action string) (*types.CraftingNode, *types.Contribution, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*types.Contribution, error)
}

type contributionService struct {
	db               *gorm.DB
	log              *logger.Logger
	projectRepo      repos.ProjectRepo
	nodeRepo         repos.NodeRepo
	contributionRepo repos.ContributionRepo
	progressCache    *rediscache.ProgressCache
}

func NewContributionService(
	db *gorm.DB,
	log *logger.Logger,
	projectRepo repos.ProjectRepo,
	nodeRepo repos.NodeRepo,
	contributionRepo repos.ContributionRepo,
	progressCache *rediscache.ProgressCache,
) ContributionService {
	serviceLog := log.With("service", "ContributionService")
	return &contributionService{
		db:               db,
		log:              serviceLog,
		projectRepo:      projectRepo,
		nodeRepo:         nodeRepo,
		contributionRepo: contributionRepo,
		progressCache:    progressCache,
	}
}

// Contribute applies one guarded mutation to one node. The whole operation
// runs in a single transaction: either the node moves and its audit rows
// land together, or nothing changes. The clamp and the crafted guard are
// both enforced by the NodeRepo's conditional UPDATEs, never from state the
// caller read earlier.
func (s *contributionService) Contribute(ctx context.Context, projectID, nodeID, actorID uuid.UUID, quantity int, action string) (*types.CraftingNode, *types.Contribution, error) {
	if quantity < 1 {
		return nil, nil, apierr.InvalidQuantity(quantity)
	}
	if action != types.ContributionActionCollected && action != types.ContributionActionCrafted {
		return nil, nil, apierr.InvalidArgument("action must be collected or crafted")
	}

	var updated *types.CraftingNode
	var primary *types.Contribution

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		node, err := s.nodeRepo.GetByID(ctx, tx, nodeID)
		if err != nil {
			return err
		}
		if node == nil || node.ProjectID != projectID {
			return apierr.NodeNotFound()
		}

		milestone := false
		switch action {
		case types.ContributionActionCollected:
			if !node.IsResource {
				return apierr.InvalidNodeKind(action)
			}
			result, changed, err := s.nodeRepo.AtomicAddClamped(ctx, tx, nodeID, quantity)
			if err != nil {
				return err
			}
			if result == nil {
				return apierr.NodeNotFound()
			}
			updated = result
			// Only the call that moved the row onto the cap reports the
			// milestone; a concurrent overshooting call matches no row
			// and its extra is dropped silently.
			milestone = changed && updated.CollectedQty >= updated.RequiredQty

		case types.ContributionActionCrafted:
			if node.IsResource {
				return apierr.InvalidNodeKind(action)
			}
			if node.Crafted {
				return apierr.AlreadyCrafted()
			}
			ok, err := s.nodeRepo.AtomicMarkCrafted(ctx, tx, nodeID)
			if err != nil {
				return err
			}
			if !ok {
				// The guard matched no row: either a sibling race already
				// crafted it or a direct child is incomplete right now.
				current, err := s.nodeRepo.GetByID(ctx, tx, nodeID)
				if err != nil {
					return err
				}
				if current != nil && current.Crafted {
					return apierr.AlreadyCrafted()
				}
				return apierr.DependenciesIncomplete()
			}
			current, err := s.nodeRepo.GetByID(ctx, tx, nodeID)
			if err != nil {
				return err
			}
			updated = current
			milestone = true
		}

		nodeRef := nodeID
		rows := []*types.Contribution{{
			ID:            uuid.New(),
			ProjectID:     projectID,
			NodeID:        &nodeRef,
			ActorID:       actorID,
			QuantityDelta: quantity,
			Action:        action,
		}}
		if milestone {
			rows = append(rows, &types.Contribution{
				ID:        uuid.New(),
				ProjectID: projectID,
				NodeID:    &nodeRef,
				ActorID:   actorID,
				Action:    types.ContributionActionMilestone,
			})
		}
		created, err := s.contributionRepo.Create(ctx, tx, rows)
		if err != nil {
			return err
		}
		primary = created[0]

		// Crafting the last root finishes the project.
		if action == types.ContributionActionCrafted && updated != nil && updated.ParentID == nil {
			if err := s.maybeCompleteProject(ctx, tx, projectID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.progressCache.Invalidate(ctx, projectID)
	s.log.Debug("Contribution accepted", "project", projectID, "node", nodeID, "action", action, "quantity", quantity)
	return updated, primary, nil
}

func (s *contributionService) maybeCompleteProject(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	nodes, err := s.nodeRepo.GetByProjectID(ctx, tx, projectID)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		if node.ParentID == nil && !node.Terminal() {
			return nil
		}
	}
	return s.projectRepo.UpdateStatus(ctx, tx, projectID, types.ProjectStatusCompleted)
}

func (s *contributionService) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*types.Contribution, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, apierr.NotFound("project")
	}
	return s.contributionRepo.GetByProjectID(ctx, nil, projectID)
}
