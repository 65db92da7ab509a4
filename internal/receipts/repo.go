package receipts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/receiptwise/backend/pkg/db/models"
)

// Repository manages persistence for receipts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, receipt *models.Receipt) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Receipt, error)
	ListAll(ctx context.Context) ([]models.Receipt, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	DistinctVendors(ctx context.Context) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a receipt repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, receipt *models.Receipt) error {
	return r.db.WithContext(ctx).Create(receipt).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

// FindByIDForUpdate loads the receipt under a row lock so concurrent updates
// to the same receipt serialize instead of interleaving their writes.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	var receipt models.Receipt
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *repository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.Receipt, error) {
	var receipts []models.Receipt
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *repository) ListAll(ctx context.Context) ([]models.Receipt, error) {
	var receipts []models.Receipt
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Receipt{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Receipt{}).Error
}

// DistinctVendors lists every vendor seen across receipts, excluding the
// unextracted sentinel, sorted for stable filter options.
func (r *repository) DistinctVendors(ctx context.Context) ([]string, error) {
	var vendors []string
	if err := r.db.WithContext(ctx).
		Model(&models.Receipt{}).
		Where("vendor <> ?", "Missing").
		Distinct("vendor").
		Order("vendor ASC").
		Pluck("vendor", &vendors).Error; err != nil {
		return nil, err
	}
	return vendors, nil
}
