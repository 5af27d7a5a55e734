package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	rediscache "github.com/craftparty/craftparty-backend/internal/clients/redis"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/repos"
	"github.com/craftparty/craftparty-backend/internal/types"
)

type ProjectService interface {
	CreateProject(ctx context.Context, ownerID uuid.UUID, name, targetItem string, targetQty int, enchantments []types.Enchantment) (*types.Project, []*types.CraftingNode, error)
	AddGoal(ctx context.Context, projectID uuid.UUID, targetItem string, targetQty int, enchantments []types.Enchantment) ([]*types.CraftingNode, error)
	GetProject(ctx context.Context, projectID uuid.UUID) (*types.Project, []*types.CraftingNode, error)
	ListProjects(ctx context.Context, ownerID uuid.UUID) ([]*types.Project, error)
	UpdateStatus(ctx context.Context, projectID uuid.UUID, status string) (*types.Project, error)
	UpdateEnchantments(ctx context.Context, projectID, rootNodeID uuid.UUID, enchantments []types.Enchantment) (*types.CraftingNode, error)
	DeleteProject(ctx context.Context, projectID uuid.UUID) error
}

type projectService struct {
	db               *gorm.DB
	log              *logger.Logger
	treeService      TreeService
	projectRepo      repos.ProjectRepo
	nodeRepo         repos.NodeRepo
	contributionRepo repos.ContributionRepo
	snapshotRepo     repos.SnapshotRepo
	progressCache    *rediscache.ProgressCache
}

func NewProjectService(
	db *gorm.DB,
	log *logger.Logger,
	treeService TreeService,
	projectRepo repos.ProjectRepo,
	nodeRepo repos.NodeRepo,
	contributionRepo repos.ContributionRepo,
	snapshotRepo repos.SnapshotRepo,
	progressCache *rediscache.ProgressCache,
) ProjectService {
	serviceLog := log.With("service", "ProjectService")
	return &projectService{
		db:               db,
		log:              serviceLog,
		treeService:      treeService,
		projectRepo:      projectRepo,
		nodeRepo:         nodeRepo,
		contributionRepo: contributionRepo,
		snapshotRepo:     snapshotRepo,
		progressCache:    progressCache,
	}
}

// CreateProject expands the goal fully in memory first; only a successful
// expansion touches the database, as one insert transaction.
func (s *projectService) CreateProject(ctx context.Context, ownerID uuid.UUID, name, targetItem string, targetQty int, enchantments []types.Enchantment) (*types.Project, []*types.CraftingNode, error) {
	if name == "" {
		name = targetItem
	}

	_, nodes, err := s.treeService.Expand(ctx, targetItem, targetQty, enchantments)
	if err != nil {
		return nil, nil, err
	}

	project := &types.Project{
		ID:      uuid.New(),
		OwnerID: ownerID,
		Name:    name,
		Status:  types.ProjectStatusActive,
	}
	for _, node := range nodes {
		node.ProjectID = project.ID
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.projectRepo.Create(ctx, tx, []*types.Project{project}); err != nil {
			return err
		}
		if _, err := s.nodeRepo.Create(ctx, tx, nodes); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}

	s.log.Info("Project created", "project", project.ID, "target", targetItem, "nodes", len(nodes))
	return project, nodes, nil
}

// AddGoal expands another target into the same project, appending a second
// root to the forest.
func (s *projectService) AddGoal(ctx context.Context, projectID uuid.UUID, targetItem string, targetQty int, enchantments []types.Enchantment) ([]*types.CraftingNode, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, apierr.NotFound("project")
	}

	_, nodes, err := s.treeService.Expand(ctx, targetItem, targetQty, enchantments)
	if err != nil {
		return nil, err
	}
	for _, node := range nodes {
		node.ProjectID = projectID
	}

	if _, err := s.nodeRepo.Create(ctx, nil, nodes); err != nil {
		return nil, err
	}
	s.progressCache.Invalidate(ctx, projectID)
	s.log.Info("Goal added to project", "project", projectID, "target", targetItem, "nodes", len(nodes))
	return nodes, nil
}

func (s *projectService) GetProject(ctx context.Context, projectID uuid.UUID) (*types.Project, []*types.CraftingNode, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return nil, nil, err
	}
	if len(projects) == 0 {
		return nil, nil, apierr.NotFound("project")
	}
	nodes, err := s.nodeRepo.GetByProjectID(ctx, nil, projectID)
	if err != nil {
		return nil, nil, err
	}
	return projects[0], nodes, nil
}

func (s *projectService) ListProjects(ctx context.Context, ownerID uuid.UUID) ([]*types.Project, error) {
	return s.projectRepo.GetByOwnerID(ctx, nil, ownerID)
}

func (s *projectService) UpdateStatus(ctx context.Context, projectID uuid.UUID, status string) (*types.Project, error) {
	if !types.ValidProjectStatus(status) {
		return nil, apierr.InvalidArgument("status must be active, completed or archived")
	}
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, apierr.NotFound("project")
	}
	if err := s.projectRepo.UpdateStatus(ctx, nil, projectID, status); err != nil {
		return nil, err
	}
	project := projects[0]
	project.Status = status
	return project, nil
}

// UpdateEnchantments edits the enchantment set of a tree root. Enchantments
// describe the finished target, so non-root and intermediate nodes reject
// the edit.
func (s *projectService) UpdateEnchantments(ctx context.Context, projectID, rootNodeID uuid.UUID, enchantments []types.Enchantment) (*types.CraftingNode, error) {
	node, err := s.nodeRepo.GetByID(ctx, nil, rootNodeID)
	if err != nil {
		return nil, err
	}
	if node == nil || node.ProjectID != projectID {
		return nil, apierr.NodeNotFound()
	}
	if node.ParentID != nil {
		return nil, apierr.InvalidArgument("enchantments can only be set on a tree root")
	}

	set := datatypes.NewJSONSlice(enchantments)
	if err := s.nodeRepo.UpdateEnchantments(ctx, nil, rootNodeID, set); err != nil {
		return nil, err
	}
	node.Enchantments = set
	return node, nil
}

func (s *projectService) DeleteProject(ctx context.Context, projectID uuid.UUID) error {
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		return apierr.NotFound("project")
	}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.nodeRepo.FullDeleteByProjectID(ctx, tx, projectID); err != nil {
			return err
		}
		if err := s.snapshotRepo.FullDeleteByProjectID(ctx, tx, projectID); err != nil {
			return err
		}
		if err := s.projectRepo.FullDeleteByID(ctx, tx, projectID); err != nil {
			return err
		}
		return nil
	}); err != nil {
		return err
	}
	// A cached rollup must not outlive its project.
	s.progressCache.Invalidate(ctx, projectID)
	return nil
}
