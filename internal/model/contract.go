package model

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "DRAFT"
	ContractStatusSent      ContractStatus = "SENT"
	ContractStatusSigned    ContractStatus = "SIGNED"
	ContractStatusActive    ContractStatus = "ACTIVE"
	ContractStatusExpired   ContractStatus = "EXPIRED"
	ContractStatusCancelled ContractStatus = "CANCELLED"
)

// Contract owns an immutable rendered body snapshot taken at generation
// time. Later edits to the source template never touch it; regeneration
// replaces the snapshot and is only legal while the contract is a draft.
type Contract struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Number       string         `gorm:"uniqueIndex;size:64;not null"`
	TemplateID   uuid.UUID      `gorm:"type:uuid;not null;index"`
	StudentID    uuid.UUID      `gorm:"type:uuid;not null;index"`
	PlanID       uuid.UUID      `gorm:"type:uuid;not null"`
	Status       ContractStatus `gorm:"size:16;not null;index"`
	Body         string         `gorm:"type:text;not null"`
	SignatureRef *string        `gorm:"size:255"`
	AutoRenew    bool           `gorm:"not null"`
	StartAt      time.Time      `gorm:"not null"`
	EndAt        time.Time      `gorm:"not null"`
	SentAt       *time.Time
	SignedAt     *time.Time
	ActivatedAt  *time.Time
	ExpiredAt    *time.Time
	CancelledAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Contract) TableName() string { return "contracts" }

// StatusChange is the audit record written for every successful lifecycle
// transition. Side effects (email, PDF delivery) hang off these rows, not
// off the transition itself.
type StatusChange struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey"`
	ContractID uuid.UUID      `gorm:"type:uuid;not null;index"`
	FromStatus ContractStatus `gorm:"size:16;not null"`
	ToStatus   ContractStatus `gorm:"size:16;not null"`
	Trigger    string         `gorm:"column:event_trigger;size:48;not null"`
	OccurredAt time.Time      `gorm:"not null"`
}

func (StatusChange) TableName() string { return "contract_status_history" }

// ContractCounter backs number allocation: one row per year, incremented
// inside the allocating transaction.
type ContractCounter struct {
	Year      int   `gorm:"primaryKey"`
	LastValue int64 `gorm:"not null"`
}

func (ContractCounter) TableName() string { return "contract_counters" }
