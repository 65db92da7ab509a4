package history

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/receiptwise/backend/pkg/db/models"
)

// Repository manages persistence for receipt change records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, change *models.ReceiptChange) error
	ListByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]models.ReceiptChange, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, change *models.ReceiptChange) error {
	return r.db.WithContext(ctx).Create(change).Error
}

func (r *repository) ListByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]models.ReceiptChange, error) {
	var changes []models.ReceiptChange
	if err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		Order("changed_at DESC").
		Find(&changes).Error; err != nil {
		return nil, err
	}
	return changes, nil
}
