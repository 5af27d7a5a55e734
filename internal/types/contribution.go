package types

import (
	"time"
	"github.com/google/uuid"
)

const (
	ContributionActionCollected = "collected"
	ContributionActionCrafted   = "crafted"
	ContributionActionMilestone = "milestone"
	ContributionActionRestored  = "restored"
)

// Contribution is an append-only audit record of one accepted mutation.
// Rows are never updated or deleted.
type Contribution struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID     uuid.UUID   `gorm:"type:uuid;index;not null;column:project_id" json:"project_id"`
	NodeID        *uuid.UUID  `gorm:"type:uuid;index;column:node_id" json:"node_id,omitempty"`
	ActorID       uuid.UUID   `gorm:"type:uuid;not null;column:actor_id" json:"actor_id"`
	QuantityDelta int         `gorm:"not null;column:quantity_delta" json:"quantity_delta"`
	Action        string      `gorm:"not null;column:action" json:"action"`
	CreatedAt     time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Contribution) TableName() string {
	return "contribution"
}
