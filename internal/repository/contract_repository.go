package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vittafit/contracts/internal/lifecycle"
	"github.com/vittafit/contracts/internal/model"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

func (r *ContractRepository) Create(ctx context.Context, c *model.Contract) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContractRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contract, error) {
	var c model.Contract
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContractRepository) List(ctx context.Context, status *model.ContractStatus) ([]model.Contract, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var contracts []model.Contract
	if err := query.Find(&contracts).Error; err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *ContractRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at ASC").
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// Save persists a regenerated draft snapshot.
func (r *ContractRepository) Save(ctx context.Context, c *model.Contract) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// SaveWithEvent writes the transitioned contract and its audit row in
// one transaction, so readers never observe a status without its event.
func (r *ContractRepository) SaveWithEvent(ctx context.Context, c *model.Contract, event lifecycle.Event) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(c).Error; err != nil {
			return err
		}
		change := model.StatusChange{
			ID:         uuid.New(),
			ContractID: event.ContractID,
			FromStatus: event.From,
			ToStatus:   event.To,
			Trigger:    string(event.Trigger),
			OccurredAt: event.Timestamp,
		}
		return tx.Create(&change).Error
	})
}

func (r *ContractRepository) ListStatusHistory(ctx context.Context, contractID uuid.UUID) ([]model.StatusChange, error) {
	var changes []model.StatusChange
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("occurred_at ASC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// ListSignedDueForActivation returns signed contracts whose start date
// has been reached.
func (r *ContractRepository) ListSignedDueForActivation(ctx context.Context, now time.Time) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Where("status = ? AND start_at <= ?", model.ContractStatusSigned, now).
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// ListActivePastEnd returns active contracts whose end date has passed,
// renewal candidates included.
func (r *ContractRepository) ListActivePastEnd(ctx context.Context, now time.Time) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_at < ?", model.ContractStatusActive, now).
		Find(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

// NextNumber increments the per-year counter transactionally and formats
// the contract number. The unique index on contracts.number is the final
// uniqueness guarantee.
func (r *ContractRepository) NextNumber(ctx context.Context, prefix string, year int) (string, error) {
	var value int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var counter model.ContractCounter
		err := tx.First(&counter, "year = ?", year).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			counter = model.ContractCounter{Year: year, LastValue: 1}
			if err := tx.Create(&counter).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			counter.LastValue++
			if err := tx.Save(&counter).Error; err != nil {
				return err
			}
		}
		value = counter.LastValue
		return nil
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%06d", prefix, year, value), nil
}

func (r *ContractRepository) GetStudent(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	var s model.Student
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ContractRepository) GetPlan(ctx context.Context, id uuid.UUID) (*model.Plan, error) {
	var p model.Plan
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
