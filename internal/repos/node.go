package repos

import (
	"context"
	"errors"
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/types"
)

// NodeRepo is the Node Store contract the crafting engine runs against. The
// two Atomic* methods are the only places collected quantities and crafted
// flags are ever written; both are single conditional UPDATEs so concurrent
// contributors cannot lose updates or slip past the craft guard.
type NodeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.CraftingNode) ([]*types.CraftingNode, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CraftingNode, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.CraftingNode, error)
	GetByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.CraftingNode, error)
	AtomicAddClamped(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) (*types.CraftingNode, bool, error)
	AtomicMarkCrafted(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error)
	UpdateEnchantments(ctx context.Context, tx *gorm.DB, id uuid.UUID, set datatypes.JSONSlice[types.Enchantment]) error
	ReplaceAll(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, rows []*types.CraftingNode) error
	FullDeleteByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error
}

type nodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNodeRepo(db *gorm.DB, baseLog *logger.Logger) NodeRepo {
	repoLog := baseLog.With("repo", "NodeRepo")
	return &nodeRepo{db: db, log: repoLog}
}

func (r *nodeRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.CraftingNode) ([]*types.CraftingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.CraftingNode{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *nodeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.CraftingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result types.CraftingNode
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func (r *nodeRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.CraftingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CraftingNode
	if projectID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("depth ASC, created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *nodeRepo) GetByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.CraftingNode, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.CraftingNode
	if parentID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// AtomicAddClamped adds delta to a resource node's collected quantity,
// clamped at required_qty, as one conditional UPDATE. The returned bool
// reports whether the row actually moved; a node already at its cap matches
// no row and the extra is dropped. The CASE clamp is portable across
// postgres and sqlite.
func (r *nodeRepo) AtomicAddClamped(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) (*types.CraftingNode, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).
		Model(&types.CraftingNode{}).
		Where("id = ? AND is_resource = ? AND collected_qty < required_qty", id, true).
		Updates(map[string]interface{}{
			"collected_qty": gorm.Expr("CASE WHEN collected_qty + ? >= required_qty THEN required_qty ELSE collected_qty + ? END", delta, delta),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	changed := res.RowsAffected > 0

	updated, err := r.GetByID(ctx, transaction, id)
	if err != nil {
		return nil, false, err
	}
	return updated, changed, nil
}

// AtomicMarkCrafted flips a composite node to crafted, guarded by a
// re-check of its direct children inside the same statement: the UPDATE
// matches only while no child is incomplete, so a sibling regressing
// between the caller's read and this write makes it a no-op rather than an
// invalid craft.
func (r *nodeRepo) AtomicMarkCrafted(ctx context.Context, tx *gorm.DB, id uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	res := transaction.WithContext(ctx).Exec(`
		UPDATE crafting_node SET crafted = ?, updated_at = ?
		WHERE id = ? AND is_resource = ? AND crafted = ?
		AND NOT EXISTS (
			SELECT 1 FROM crafting_node child
			WHERE child.parent_id = crafting_node.id
			AND (
				(child.is_resource = ? AND child.collected_qty < child.required_qty)
				OR (child.is_resource = ? AND child.crafted = ?)
			)
		)`,
		true, time.Now(), id, false, false, true, false, false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *nodeRepo) UpdateEnchantments(ctx context.Context, tx *gorm.DB, id uuid.UUID, set datatypes.JSONSlice[types.Enchantment]) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Model(&types.CraftingNode{}).
		Where("id = ?", id).
		Update("enchantments", set).Error; err != nil {
		return err
	}
	return nil
}

// ReplaceAll swaps a project's entire node set in place. Snapshot restore
// is the only caller; it always runs inside the restore transaction.
func (r *nodeRepo) ReplaceAll(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, rows []*types.CraftingNode) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&types.CraftingNode{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	return nil
}

func (r *nodeRepo) FullDeleteByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Delete(&types.CraftingNode{}).Error; err != nil {
		return err
	}
	return nil
}
