package services

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	rediscache "github.com/craftparty/craftparty-backend/internal/clients/redis"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/repos"
	"github.com/craftparty/craftparty-backend/internal/types"
)

// Bottleneck is one ranked entry: an incomplete resource node and how many
// of its own ancestors it is holding up.
type Bottleneck struct {
	NodeID           uuid.UUID `json:"node_id"`
	ItemID           string    `json:"item_id"`
	DisplayName      string    `json:"display_name"`
	RequiredQty      int       `json:"required_qty"`
	CollectedQty     int       `json:"collected_qty"`
	RemainingQty     int       `json:"remaining_qty"`
	BlockedAncestors int       `json:"blocked_ancestors"`
}

type ProjectProgress struct {
	TotalNodes         int `json:"total_nodes"`
	CompletedNodes     int `json:"completed_nodes"`
	TotalResources     int `json:"total_resources"`
	CompletedResources int `json:"completed_resources"`
	ProgressPct        int `json:"progress_pct"`
}

type AnalyticsService interface {
	FindBottlenecks(ctx context.Context, projectID uuid.UUID) ([]Bottleneck, error)
	GetProgress(ctx context.Context, projectID uuid.UUID) (*ProjectProgress, error)
	ResourceTotals(ctx context.Context, projectID uuid.UUID) ([]ResourceTotal, error)
}

type analyticsService struct {
	db            *gorm.DB
	log           *logger.Logger
	projectRepo   repos.ProjectRepo
	nodeRepo      repos.NodeRepo
	progressCache *rediscache.ProgressCache
}

func NewAnalyticsService(db *gorm.DB, log *logger.Logger, projectRepo repos.ProjectRepo, nodeRepo repos.NodeRepo, progressCache *rediscache.ProgressCache) AnalyticsService {
	serviceLog := log.With("service", "AnalyticsService")
	return &analyticsService{
		db:            db,
		log:           serviceLog,
		projectRepo:   projectRepo,
		nodeRepo:      nodeRepo,
		progressCache: progressCache,
	}
}

func (s *analyticsService) loadProjectNodes(ctx context.Context, projectID uuid.UUID) ([]*types.CraftingNode, error) {
	projects, err := s.projectRepo.GetByIDs(ctx, nil, []uuid.UUID{projectID})
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, apierr.NotFound("project")
	}
	return s.nodeRepo.GetByProjectID(ctx, nil, projectID)
}

func (s *analyticsService) FindBottlenecks(ctx context.Context, projectID uuid.UUID) ([]Bottleneck, error) {
	nodes, err := s.loadProjectNodes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return RankBottlenecks(nodes), nil
}

// RankBottlenecks ranks every incomplete resource node by the number of
// blocked ancestors on its own path to the root. The node set is a tree,
// not a shared DAG, so the parent chain is the full blocked set for that
// branch; duplicates of the same item in other branches rank separately.
func RankBottlenecks(nodes []*types.CraftingNode) []Bottleneck {
	byID := make(map[uuid.UUID]*types.CraftingNode, len(nodes))
	children := make(map[uuid.UUID][]*types.CraftingNode, len(nodes))
	for _, node := range nodes {
		byID[node.ID] = node
	}
	for _, node := range nodes {
		if node.ParentID != nil {
			children[*node.ParentID] = append(children[*node.ParentID], node)
		}
	}

	results := make([]Bottleneck, 0)
	for _, node := range nodes {
		if !node.IsResource || node.CollectedQty >= node.RequiredQty {
			continue
		}
		blocked := 0
		for parentID := node.ParentID; parentID != nil; {
			parent, ok := byID[*parentID]
			if !ok {
				break
			}
			if types.DeriveStatus(parent, children[parent.ID]) == types.NodeStatusBlocked {
				blocked++
			}
			parentID = parent.ParentID
		}
		results = append(results, Bottleneck{
			NodeID:           node.ID,
			ItemID:           node.ItemID,
			DisplayName:      node.DisplayName,
			RequiredQty:      node.RequiredQty,
			CollectedQty:     node.CollectedQty,
			RemainingQty:     node.RemainingQty(),
			BlockedAncestors: blocked,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].BlockedAncestors != results[j].BlockedAncestors {
			return results[i].BlockedAncestors > results[j].BlockedAncestors
		}
		if results[i].RemainingQty != results[j].RemainingQty {
			return results[i].RemainingQty > results[j].RemainingQty
		}
		return results[i].ItemID < results[j].ItemID
	})
	return results
}

func (s *analyticsService) GetProgress(ctx context.Context, projectID uuid.UUID) (*ProjectProgress, error) {
	var cached ProjectProgress
	if s.progressCache.Get(ctx, projectID, &cached) {
		return &cached, nil
	}

	nodes, err := s.loadProjectNodes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	progress := ComputeProgress(nodes)
	s.progressCache.Set(ctx, projectID, progress)
	return progress, nil
}

func ComputeProgress(nodes []*types.CraftingNode) *ProjectProgress {
	progress := &ProjectProgress{}
	for _, node := range nodes {
		progress.TotalNodes++
		if node.IsResource {
			progress.TotalResources++
		}
		if node.Terminal() {
			progress.CompletedNodes++
			if node.IsResource {
				progress.CompletedResources++
			}
		}
	}
	if progress.TotalNodes > 0 {
		progress.ProgressPct = int(math.Round(100 * float64(progress.CompletedNodes) / float64(progress.TotalNodes)))
	}
	return progress
}

func (s *analyticsService) ResourceTotals(ctx context.Context, projectID uuid.UUID) ([]ResourceTotal, error) {
	nodes, err := s.loadProjectNodes(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return FlattenResources(nodes), nil
}
