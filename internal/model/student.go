package model

import (
	"time"

	"github.com/google/uuid"
)

type Student struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName  string    `gorm:"size:160;not null"`
	CPF       string    `gorm:"size:14;not null"`
	Email     string    `gorm:"size:160"`
	Phone     string    `gorm:"size:32"`
	CreatedAt time.Time
}

func (Student) TableName() string { return "students" }

// Plan prices are stored in centavos to keep arithmetic exact; formatting
// to R$ happens at the service boundary.
type Plan struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name              string    `gorm:"size:120;not null"`
	MonthlyPriceCents int64     `gorm:"not null"`
	DurationMonths    int       `gorm:"not null"`
	DueDay            int       `gorm:"not null"`
	CreatedAt         time.Time
}

func (Plan) TableName() string { return "plans" }
