package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/catalog"
	"github.com/craftparty/craftparty-backend/internal/types"
)

func TestExpand_BuildsFullPickaxeTree(t *testing.T) {
	svc := NewTreeService(newTestLogger(t), newPickaxeCatalog())

	root, nodes, err := svc.Expand(context.Background(), "iron_pickaxe", 1, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if root == nil || root.ItemID != "iron_pickaxe" {
		t.Fatalf("expected iron_pickaxe root, got %+v", root)
	}
	if len(nodes) != 5 {
		t.Fatalf("expected 5 nodes, got %d", len(nodes))
	}

	ingot := nodeByItem(t, nodes, "iron_ingot")
	if !ingot.IsResource || ingot.RequiredQty != 3 || ingot.Depth != 1 {
		t.Fatalf("unexpected iron_ingot node: %+v", ingot)
	}
	if ingot.ParentID == nil || *ingot.ParentID != root.ID {
		t.Fatalf("iron_ingot should hang off the root")
	}

	// 2 sticks from a 4-per-craft recipe is one batch, so 2 planks and in
	// turn a single log.
	stick := nodeByItem(t, nodes, "stick")
	if stick.IsResource || stick.RequiredQty != 2 || stick.Depth != 1 {
		t.Fatalf("unexpected stick node: %+v", stick)
	}
	planks := nodeByItem(t, nodes, "oak_planks")
	if planks.RequiredQty != 2 || planks.Depth != 2 {
		t.Fatalf("unexpected oak_planks node: %+v", planks)
	}
	log := nodeByItem(t, nodes, "oak_log")
	if !log.IsResource || log.RequiredQty != 1 || log.Depth != 3 {
		t.Fatalf("unexpected oak_log node: %+v", log)
	}
}

func TestExpand_BatchRoundingMultipliesThroughDepth(t *testing.T) {
	svc := NewTreeService(newTestLogger(t), newPickaxeCatalog())

	// 3 pickaxes need 6 sticks: ceil(6/4)=2 batches, so 4 planks and then
	// ceil(4/4)=1 batch of planks from 1 log.
	_, nodes, err := svc.Expand(context.Background(), "iron_pickaxe", 3, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got := nodeByItem(t, nodes, "iron_ingot").RequiredQty; got != 9 {
		t.Fatalf("expected 9 iron_ingot, got %d", got)
	}
	if got := nodeByItem(t, nodes, "stick").RequiredQty; got != 6 {
		t.Fatalf("expected 6 stick, got %d", got)
	}
	if got := nodeByItem(t, nodes, "oak_planks").RequiredQty; got != 4 {
		t.Fatalf("expected 4 oak_planks, got %d", got)
	}
	if got := nodeByItem(t, nodes, "oak_log").RequiredQty; got != 1 {
		t.Fatalf("expected 1 oak_log, got %d", got)
	}
}

func TestExpand_RawResourceTargetIsSingleLeaf(t *testing.T) {
	svc := NewTreeService(newTestLogger(t), newPickaxeCatalog())

	root, nodes, err := svc.Expand(context.Background(), "oak_log", 12, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(nodes) != 1 {
		t.Fatalf("expected a single leaf, got %d nodes", len(nodes))
	}
	if !root.IsResource || root.RequiredQty != 12 || root.ParentID != nil {
		t.Fatalf("unexpected leaf root: %+v", root)
	}
}

func TestExpand_EnchantmentsAttachOnlyToRoot(t *testing.T) {
	svc := NewTreeService(newTestLogger(t), newPickaxeCatalog())

	set := []types.Enchantment{{Name: "sharpness", Level: 5}, {Name: "mending", Level: 1}}
	root, nodes, err := svc.Expand(context.Background(), "iron_pickaxe", 1, set)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(root.Enchantments) != 2 {
		t.Fatalf("expected enchantments on root, got %+v", root.Enchantments)
	}
	for _, node := range nodes {
		if node.ID != root.ID && len(node.Enchantments) != 0 {
			t.Fatalf("enchantments leaked to %s", node.ItemID)
		}
	}
}

func TestExpand_RejectsBadInput(t *testing.T) {
	svc := NewTreeService(newTestLogger(t), newPickaxeCatalog())
	ctx := context.Background()

	_, _, err := svc.Expand(ctx, "iron_pickaxe", 0, nil)
	if !apierr.IsCode(err, apierr.CodeInvalidQuantity) {
		t.Fatalf("expected INVALID_QUANTITY, got %v", err)
	}
	_, _, err = svc.Expand(ctx, "nether_star", 1, nil)
	if !apierr.IsCode(err, apierr.CodeUnknownItem) {
		t.Fatalf("expected UNKNOWN_ITEM, got %v", err)
	}
	_, _, err = svc.Expand(ctx, "iron_pickaxe", 1, []types.Enchantment{{Name: "looting", Level: 3}})
	if !apierr.IsCode(err, apierr.CodeUnknownEnchantment) {
		t.Fatalf("expected UNKNOWN_ENCHANTMENT, got %v", err)
	}
	_, _, err = svc.Expand(ctx, "iron_pickaxe", 1, []types.Enchantment{{Name: "sharpness", Level: 0}})
	if !apierr.IsCode(err, apierr.CodeInvalidQuantity) {
		t.Fatalf("expected INVALID_QUANTITY for level 0, got %v", err)
	}
}

func TestExpand_UnknownIngredientSurfacesMidTree(t *testing.T) {
	items := []catalog.Item{
		{ID: "widget", DisplayName: "Widget", Recipe: &catalog.Recipe{
			OutputCount: 1,
			Ingredients: []catalog.Ingredient{{Item: "missing_part", Qty: 1}},
		}},
	}
	svc := NewTreeService(newTestLogger(t), catalog.New(items, nil))

	_, _, err := svc.Expand(context.Background(), "widget", 1, nil)
	if !apierr.IsCode(err, apierr.CodeUnknownItem) {
		t.Fatalf("expected UNKNOWN_ITEM, got %v", err)
	}
}

func TestExpand_CycleTerminatesBranchAsResource(t *testing.T) {
	items := []catalog.Item{
		{ID: "a", DisplayName: "A", Recipe: &catalog.Recipe{
			OutputCount: 1,
			Ingredients: []catalog.Ingredient{{Item: "b", Qty: 1}},
		}},
		{ID: "b", DisplayName: "B", Recipe: &catalog.Recipe{
			OutputCount: 1,
			Ingredients: []catalog.Ingredient{{Item: "a", Qty: 2}},
		}},
	}
	svc := NewTreeService(newTestLogger(t), catalog.New(items, nil))

	root, nodes, err := svc.Expand(context.Background(), "a", 1, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected 3 nodes (a, b, cyclic a leaf), got %d", len(nodes))
	}
	if root.IsResource {
		t.Fatalf("root should still be a composite")
	}
	leaf := nodes[2]
	if leaf.ItemID != "a" || !leaf.IsResource || leaf.Depth != 2 {
		t.Fatalf("expected cyclic branch to become a resource leaf, got %+v", leaf)
	}
}

func TestExpand_DepthCapTerminatesBranchAsResource(t *testing.T) {
	const chain = 80
	items := make([]catalog.Item, 0, chain+1)
	for i := 0; i < chain; i++ {
		items = append(items, catalog.Item{
			ID:          fmt.Sprintf("item_%d", i),
			DisplayName: fmt.Sprintf("Item %d", i),
			Recipe: &catalog.Recipe{
				OutputCount: 1,
				Ingredients: []catalog.Ingredient{{Item: fmt.Sprintf("item_%d", i+1), Qty: 1}},
			},
		})
	}
	items = append(items, catalog.Item{ID: fmt.Sprintf("item_%d", chain), DisplayName: "Bottom"})
	svc := NewTreeService(newTestLogger(t), catalog.New(items, nil))

	_, nodes, err := svc.Expand(context.Background(), "item_0", 1, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	deepest := nodes[len(nodes)-1]
	if deepest.Depth != maxExpandDepth || !deepest.IsResource {
		t.Fatalf("expected depth-capped resource leaf at %d, got depth %d resource=%v", maxExpandDepth, deepest.Depth, deepest.IsResource)
	}
}

func TestExpand_MergesDuplicateIngredientsUnderOneParent(t *testing.T) {
	items := []catalog.Item{
		{ID: "plank", DisplayName: "Plank"},
		{ID: "frame", DisplayName: "Frame", Recipe: &catalog.Recipe{
			OutputCount: 1,
			Ingredients: []catalog.Ingredient{
				{Item: "plank", Qty: 2},
				{Item: "plank", Qty: 1},
			},
		}},
	}
	svc := NewTreeService(newTestLogger(t), catalog.New(items, nil))

	_, nodes, err := svc.Expand(context.Background(), "frame", 1, nil)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("duplicate ingredients should merge into one child, got %d nodes", len(nodes))
	}
	if got := nodeByItem(t, nodes, "plank").RequiredQty; got != 3 {
		t.Fatalf("expected merged qty 3, got %d", got)
	}
}

func TestExpand_InvalidRecipeQuantityFails(t *testing.T) {
	items := []catalog.Item{
		{ID: "part", DisplayName: "Part"},
		{ID: "gadget", DisplayName: "Gadget", Recipe: &catalog.Recipe{
			OutputCount: 1,
			Ingredients: []catalog.Ingredient{{Item: "part", Qty: 0}},
		}},
	}
	svc := NewTreeService(newTestLogger(t), catalog.New(items, nil))

	_, _, err := svc.Expand(context.Background(), "gadget", 1, nil)
	if !apierr.IsCode(err, apierr.CodeInvalidRecipe) {
		t.Fatalf("expected INVALID_RECIPE, got %v", err)
	}
}
