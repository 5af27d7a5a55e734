package services

import (
	"sort"

	"github.com/craftparty/craftparty-backend/internal/types"
)

// ResourceTotal is one aggregated shopping-list entry: every resource node
// sharing the same identity key, summed across the whole tree/forest.
type ResourceTotal struct {
	ItemID          string `json:"item_id"`
	DisplayName     string `json:"display_name"`
	VariantTag      string `json:"variant_tag,omitempty"`
	EnchantmentSig  string `json:"enchantment_sig,omitempty"`
	TotalRequired   int    `json:"total_required"`
	TotalCollected  int    `json:"total_collected"`
}

type flattenKey struct {
	itemID     string
	variantTag string
	enchantSig string
}

// FlattenResources merges all resource nodes by (item, variant, enchantment
// signature) and sums their quantities. Pure reporting view: order of the
// input does not matter and nothing is mutated; output is sorted by item id
// then variant then signature for determinism.
func FlattenResources(nodes []*types.CraftingNode) []ResourceTotal {
	totals := make(map[flattenKey]*ResourceTotal)
	for _, node := range nodes {
		if !node.IsResource {
			continue
		}
		key := flattenKey{
			itemID:     node.ItemID,
			variantTag: node.VariantTag,
			enchantSig: types.EnchantmentSignature(node.Enchantments),
		}
		entry, ok := totals[key]
		if !ok {
			entry = &ResourceTotal{
				ItemID:         node.ItemID,
				DisplayName:    node.DisplayName,
				VariantTag:     node.VariantTag,
				EnchantmentSig: key.enchantSig,
			}
			totals[key] = entry
		}
		entry.TotalRequired += node.RequiredQty
		entry.TotalCollected += node.CollectedQty
	}

	results := make([]ResourceTotal, 0, len(totals))
	for _, entry := range totals {
		results = append(results, *entry)
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].ItemID != results[j].ItemID {
			return results[i].ItemID < results[j].ItemID
		}
		if results[i].VariantTag != results[j].VariantTag {
			return results[i].VariantTag < results[j].VariantTag
		}
		return results[i].EnchantmentSig < results[j].EnchantmentSig
	})
	return results
}
