package services

import (
	"context"
	"fmt"

	"github.com/craftparty/craftparty-backend/internal/apierr"
	"github.com/craftparty/craftparty-backend/internal/catalog"
	"github.com/craftparty/craftparty-backend/internal/logger"
)

// AnvilStep describes one round of simultaneous equal-level merges.
type AnvilStep struct {
	Step        int `json:"step"`
	InputLevel  int `json:"input_level"`
	OutputLevel int `json:"output_level"`
	Count       int `json:"count"`
}

type EnchantPlan struct {
	Enchantment string      `json:"enchantment"`
	DisplayName string      `json:"display_name"`
	TargetLevel int         `json:"target_level"`
	BooksNeeded int         `json:"books_needed"`
	Steps       []AnvilStep `json:"steps"`
	Strategy    string      `json:"strategy"`
}

type EnchantService interface {
	Plan(ctx context.Context, name string, targetLevel int) (*EnchantPlan, error)
}

type enchantService struct {
	log *logger.Logger
	cat catalog.Catalog
}

func NewEnchantService(log *logger.Logger, cat catalog.Catalog) EnchantService {
	serviceLog := log.With("service", "EnchantService")
	return &enchantService{log: serviceLog, cat: cat}
}

// BooksNeeded counts the level-1 books behind one level-targetLevel book.
// Merging two equal books yields one of the next level, so each level above
// 1 doubles the requirement.
func BooksNeeded(targetLevel int) int {
	if targetLevel <= 1 {
		return 1
	}
	return 1 << (targetLevel - 1)
}

// AnvilSteps lays out the merge schedule: at each stage every pair of
// equal-level books combines at once. Empty for a level-1 target.
func AnvilSteps(targetLevel int) []AnvilStep {
	if targetLevel <= 1 {
		return []AnvilStep{}
	}
	steps := make([]AnvilStep, 0, targetLevel-1)
	for lvl := 1; lvl < targetLevel; lvl++ {
		steps = append(steps, AnvilStep{
			Step:        lvl,
			InputLevel:  lvl,
			OutputLevel: lvl + 1,
			Count:       1 << (targetLevel - lvl - 1),
		})
	}
	return steps
}

func (s *enchantService) Plan(ctx context.Context, name string, targetLevel int) (*EnchantPlan, error) {
	if targetLevel < 1 {
		return nil, apierr.InvalidQuantity(targetLevel)
	}
	meta, ok := s.cat.Enchantment(name)
	if !ok {
		return nil, apierr.UnknownEnchantment(name)
	}

	plan := &EnchantPlan{
		Enchantment: meta.ID,
		DisplayName: meta.DisplayName,
		TargetLevel: targetLevel,
		BooksNeeded: BooksNeeded(targetLevel),
		Steps:       AnvilSteps(targetLevel),
		Strategy:    bestStrategy(meta, targetLevel),
	}
	return plan, nil
}

// bestStrategy is a decision over static metadata; the book math above is
// the fallback recommendation when the table cannot roll the level
// directly.
func bestStrategy(meta *catalog.Enchantment, targetLevel int) string {
	if meta.Strategy != "" {
		return meta.Strategy
	}
	switch {
	case targetLevel > meta.MaxLevel:
		return fmt.Sprintf("%s %d exceeds the obtainable maximum of %d; cap your plan at level %d.", meta.DisplayName, targetLevel, meta.MaxLevel, meta.MaxLevel)
	case targetLevel <= meta.MaxTableLevel:
		return fmt.Sprintf("Enchanting table can roll %s %d directly; enchant books and pick the roll you need.", meta.DisplayName, targetLevel)
	default:
		return fmt.Sprintf("Table tops out at %s %d; collect %d level-1 books and anvil-merge up to level %d.", meta.DisplayName, meta.MaxTableLevel, BooksNeeded(targetLevel), targetLevel)
	}
}
