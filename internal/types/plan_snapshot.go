package types

import (
	"time"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PlanSnapshot is an immutable copy of a project's full node set. Versions
// are monotonically increasing per project; restoring one bulk-replaces the
// live node set.
type PlanSnapshot struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_project_version;column:project_id" json:"project_id"`
	Version     int              `gorm:"not null;uniqueIndex:idx_snapshot_project_version;column:version" json:"version"`
	Label       string           `gorm:"column:label" json:"label"`
	Nodes       datatypes.JSON   `gorm:"column:nodes" json:"nodes"`
	CreatedAt   time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (PlanSnapshot) TableName() string {
	return "plan_snapshot"
}
