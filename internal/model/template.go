package model

import (
	"time"

	"github.com/google/uuid"
)

// ContractTemplate holds the raw HTML source with placeholders. It is
// reused across many contracts; contracts reference it by id and keep
// their own rendered snapshot.
type ContractTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:120;not null"`
	Body      string    `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ContractTemplate) TableName() string { return "contract_templates" }
