package model

import (
	"time"

	"github.com/google/uuid"
)

// Issue is the open work item pledges are made against.
type Issue struct {
	Base

	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	RepositoryName string    `json:"repository_name" gorm:"not null"`
	Number         int64     `json:"number" gorm:"not null"`
	Title          string    `json:"title" gorm:"not null"`

	// Denormalized aggregates over active pledges.
	PledgedAmountSum int64      `json:"pledged_amount_sum"`
	LastPledgedAt    *time.Time `json:"last_pledged_at"`

	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}
