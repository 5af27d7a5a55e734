package services

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/catalog"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/types"
)

// maxExpandDepth bounds expansion so a cyclic or absurdly deep recipe chain
// degrades to a resource leaf instead of recursing forever.
const maxExpandDepth = 64

type TreeService interface {
	Expand(ctx context.Context, targetItem string, targetQty int, enchantments []types.Enchantment) (*types.CraftingNode, []*types.CraftingNode, error)
}

type treeService struct {
	log *logger.Logger
	cat catalog.Catalog
}

func NewTreeService(log *logger.Logger, cat catalog.Catalog) TreeService {
	serviceLog := log.With("service", "TreeService")
	return &treeService{log: serviceLog, cat: cat}
}

// expandFrame is one pending branch of the expansion. path carries the item
// ids from the root down to (excluding) this frame, for cycle detection.
type expandFrame struct {
	itemID   string
	qty      int
	parent   *types.CraftingNode
	depth    int
	path     []string
	enchants []types.Enchantment
}

// Expand builds the full production tree for one target. It is pure with
// respect to storage: nodes are materialized in memory with fresh ids and
// no project id, so a failed expansion leaves nothing behind.
func (s *treeService) Expand(ctx context.Context, targetItem string, targetQty int, enchantments []types.Enchantment) (*types.CraftingNode, []*types.CraftingNode, error) {
	if targetQty <= 0 {
		return nil, nil, apierr.InvalidQuantity(targetQty)
	}
	for _, e := range enchantments {
		if _, ok := s.cat.Enchantment(e.Name); !ok {
			return nil, nil, apierr.UnknownEnchantment(e.Name)
		}
		if e.Level < 1 {
			return nil, nil, apierr.InvalidQuantity(e.Level)
		}
	}

	var root *types.CraftingNode
	allNodes := make([]*types.CraftingNode, 0, 16)

	stack := []expandFrame{{
		itemID:   targetItem,
		qty:      targetQty,
		depth:    0,
		enchants: enchantments,
	}}

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		item, ok := s.cat.Item(frame.itemID)
		if !ok {
			return nil, nil, apierr.UnknownItem(frame.itemID)
		}

		node := &types.CraftingNode{
			ID:          uuid.New(),
			ItemID:      item.ID,
			DisplayName: item.DisplayName,
			RequiredQty: frame.qty,
			Depth:       frame.depth,
		}
		if frame.parent != nil {
			parentID := frame.parent.ID
			node.ParentID = &parentID
		}
		if len(frame.enchants) > 0 {
			node.Enchantments = datatypes.NewJSONSlice(frame.enchants)
		}

		// A cycle or the depth bound is not an error: the branch just
		// becomes a leaf the players gather directly.
		isCycle := slices.Contains(frame.path, item.ID)
		if item.Recipe == nil || isCycle || frame.depth >= maxExpandDepth {
			if isCycle {
				s.log.Warn("Recipe cycle detected, terminating branch as resource", "item", item.ID)
			}
			node.IsResource = true
			allNodes = append(allNodes, node)
			if frame.parent == nil {
				root = node
			}
			continue
		}

		if item.Recipe.OutputCount <= 0 {
			s.log.Error("Catalog contract violation: recipe with non-positive output count", "item", item.ID, "outputCount", item.Recipe.OutputCount)
			return nil, nil, apierr.InvalidRecipe(item.ID, "output count must be positive")
		}

		batches := (frame.qty + item.Recipe.OutputCount - 1) / item.Recipe.OutputCount

		// Merge duplicate ingredients under this parent before recursing;
		// this is the only merge expansion ever performs. Recipe order is
		// kept for the first occurrence of each ingredient.
		type mergedIngredient struct {
			item        string
			qtyPerCraft int
		}
		merged := make([]mergedIngredient, 0, len(item.Recipe.Ingredients))
		index := make(map[string]int, len(item.Recipe.Ingredients))
		for _, ing := range item.Recipe.Ingredients {
			if ing.Qty <= 0 {
				s.log.Error("Catalog contract violation: recipe ingredient with non-positive quantity", "item", item.ID, "ingredient", ing.Item, "qty", ing.Qty)
				return nil, nil, apierr.InvalidRecipe(item.ID, "ingredient quantity must be positive")
			}
			if at, seen := index[ing.Item]; seen {
				merged[at].qtyPerCraft += ing.Qty
				continue
			}
			index[ing.Item] = len(merged)
			merged = append(merged, mergedIngredient{item: ing.Item, qtyPerCraft: ing.Qty})
		}

		allNodes = append(allNodes, node)
		if frame.parent == nil {
			root = node
		}

		childPath := make([]string, len(frame.path), len(frame.path)+1)
		copy(childPath, frame.path)
		childPath = append(childPath, item.ID)

		// Push in reverse so the LIFO stack expands ingredients in recipe
		// order.
		for i := len(merged) - 1; i >= 0; i-- {
			stack = append(stack, expandFrame{
				itemID: merged[i].item,
				qty:    batches * merged[i].qtyPerCraft,
				parent: node,
				depth:  frame.depth + 1,
				path:   childPath,
			})
		}
	}

	s.log.Debug("Expansion complete", "target", targetItem, "qty", targetQty, "nodes", len(allNodes))
	return root, allNodes, nil
}
