package types

import (
	"fmt"
	"strings"
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Enchantment is one (enchantment id, level) entry of a node's enchantment
// set. The set is ordered and only ever attached to tree roots.
type Enchantment struct {
	Name    string  `json:"name"`
	Level   int     `json:"level"`
}

type NodeStatus string

const (
	NodeStatusNeedsGathering NodeStatus = "needs_gathering"
	NodeStatusGathered       NodeStatus = "gathered"
	NodeStatusBlocked        NodeStatus = "blocked"
	NodeStatusCraftable      NodeStatus = "craftable"
	NodeStatusCrafted        NodeStatus = "crafted"
)

// CraftingNode is one entry of a project's expanded crafting tree. Nodes are
// stored as a flat arena keyed by id with a plain parent id; duplicate items
// under different parents stay separate rows on purpose.
type CraftingNode struct {
	ID            uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID                           `gorm:"type:uuid;index;column:project_id" json:"project_id"`
	ParentID      *uuid.UUID                          `gorm:"type:uuid;index;column:parent_id" json:"parent_id,omitempty"`
	ItemID        string                              `gorm:"not null;column:item_id" json:"item_id"`
	DisplayName   string                              `gorm:"not null;column:display_name" json:"display_name"`
	RequiredQty   int                                 `gorm:"not null;column:required_qty" json:"required_qty"`
	CollectedQty  int                                 `gorm:"not null;default:0;column:collected_qty" json:"collected_qty"`
	IsResource    bool                                `gorm:"not null;column:is_resource" json:"is_resource"`
	Depth         int                                 `gorm:"not null;column:depth" json:"depth"`
	Crafted       bool                                `gorm:"not null;default:false;column:crafted" json:"crafted"`
	Enchantments  datatypes.JSONSlice[Enchantment]    `gorm:"column:enchantments" json:"enchantments,omitempty"`
	VariantTag    string                              `gorm:"column:variant_tag" json:"variant_tag,omitempty"`
	CreatedAt     time.Time                           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CraftingNode) TableName() string {
	return "crafting_node"
}

func (n *CraftingNode) RemainingQty() int {
	remaining := n.RequiredQty - n.CollectedQty
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Terminal reports whether the node is complete: a gathered resource or a
// crafted composite. Children do not matter here; the craftable/blocked
// distinction is DeriveStatus's job.
func (n *CraftingNode) Terminal() bool {
	if n.IsResource {
		return n.CollectedQty >= n.RequiredQty
	}
	return n.Crafted
}

// DeriveStatus recomputes a node's state from its stored fields and its
// direct children. Status is never stored independently, so re-deriving it
// is a pure function of the row set.
func DeriveStatus(node *CraftingNode, children []*CraftingNode) NodeStatus {
	if node.IsResource {
		if node.CollectedQty >= node.RequiredQty {
			return NodeStatusGathered
		}
		return NodeStatusNeedsGathering
	}
	if node.Crafted {
		return NodeStatusCrafted
	}
	for _, child := range children {
		if !child.Terminal() {
			return NodeStatusBlocked
		}
	}
	return NodeStatusCraftable
}

// EnchantmentSignature is the identity key component used when merging
// resource rows for reporting. Order is preserved from the stored set.
func EnchantmentSignature(set []Enchantment) string {
	if len(set) == 0 {
		return ""
	}
	parts := make([]string, 0, len(set))
	for _, e := range set {
		parts = append(parts, fmt.Sprintf("%s:%d", e.Name, e.Level))
	}
	return strings.Join(parts, ",")
}
