package repos

import (
	"context"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"github.com/craftparty/craftparty-backend/internal/logger"
	"github.com/craftparty/craftparty-backend/internal/types"
)

// ContributionRepo is append-only: no update or delete methods exist on
// purpose, contributions are the audit trail.
type ContributionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Contribution) ([]*types.Contribution, error)
	GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Contribution, error)
	GetByNodeID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) ([]*types.Contribution, error)
}

type contributionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContributionRepo(db *gorm.DB, baseLog *logger.Logger) ContributionRepo {
	repoLog := baseLog.With("repo", "ContributionRepo")
	return &contributionRepo{db: db, log: repoLog}
}

func (r *contributionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Contribution) ([]*types.Contribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(rows) == 0 {
		return []*types.Contribution{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *contributionRepo) GetByProjectID(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) ([]*types.Contribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Contribution
	if projectID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contributionRepo) GetByNodeID(ctx context.Context, tx *gorm.DB, nodeID uuid.UUID) ([]*types.Contribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*types.Contribution
	if nodeID == uuid.Nil {
		return results, nil
	}

	if err := transaction.WithContext(ctx).
		Where("node_id = ?", nodeID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
