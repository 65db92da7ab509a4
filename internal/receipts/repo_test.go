package receipts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/receiptwise/backend/pkg/db/models"
	"github.com/receiptwise/backend/pkg/enums"
)

func setupReceiptsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	receipts := `
CREATE TABLE IF NOT EXISTS receipts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  image_path TEXT NOT NULL,
  vendor TEXT NOT NULL,
  amount TEXT NOT NULL,
  date TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  category TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  content TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(receipts).Error)
	return db
}

func insertReceipt(t *testing.T, repo Repository, userID uuid.UUID, vendor string) *models.Receipt {
	t.Helper()

	receipt := &models.Receipt{
		ID:            uuid.New(),
		UserID:        userID,
		ImagePath:     uuid.NewString() + "_receipt.png",
		Vendor:        vendor,
		Amount:        "46.43",
		Date:          "2024-01-20",
		PaymentMethod: "Credit Card",
		Category:      "Supplies",
		Status:        enums.ReceiptStatusPending,
		Content:       json.RawMessage(`{"Vendor": "` + vendor + `"}`),
	}
	require.NoError(t, repo.Create(context.Background(), receipt))
	return receipt
}

func TestRepository_CreateAndFind(t *testing.T) {
	repo := NewRepository(setupReceiptsTestDB(t))
	userID := uuid.New()

	created := insertReceipt(t, repo, userID, "Test Store")

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Store", found.Vendor)
	assert.Equal(t, enums.ReceiptStatusPending, found.Status)
	assert.JSONEq(t, `{"Vendor": "Test Store"}`, string(found.Content))

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_ListByUserIDScopesToOwner(t *testing.T) {
	repo := NewRepository(setupReceiptsTestDB(t))
	owner := uuid.New()

	insertReceipt(t, repo, owner, "Store A")
	insertReceipt(t, repo, owner, "Store B")
	insertReceipt(t, repo, uuid.New(), "Other Store")

	listed, err := repo.ListByUserID(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
	for _, receipt := range listed {
		assert.Equal(t, owner, receipt.UserID)
	}
}

func TestRepository_Update(t *testing.T) {
	repo := NewRepository(setupReceiptsTestDB(t))
	created := insertReceipt(t, repo, uuid.New(), "Test Store")

	err := repo.Update(context.Background(), created.ID, map[string]any{
		"vendor": "Renamed Store",
		"status": "approved",
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Store", found.Vendor)
	assert.Equal(t, enums.ReceiptStatusApproved, found.Status)
	assert.Equal(t, "46.43", found.Amount)
}

func TestRepository_Delete(t *testing.T) {
	repo := NewRepository(setupReceiptsTestDB(t))
	created := insertReceipt(t, repo, uuid.New(), "Test Store")

	require.NoError(t, repo.Delete(context.Background(), created.ID))

	_, err := repo.FindByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepository_DeleteCascadesChangeRecords(t *testing.T) {
	db := setupReceiptsTestDB(t)

	changes := `
CREATE TABLE IF NOT EXISTS receipt_changes (
  id TEXT PRIMARY KEY,
  receipt_id TEXT NOT NULL REFERENCES receipts (id) ON DELETE CASCADE,
  field_name TEXT NOT NULL,
  new_value TEXT NOT NULL,
  changed_at DATETIME,
  changed_by TEXT NOT NULL DEFAULT 'system'
);`
	require.NoError(t, db.Exec(changes).Error)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)

	repo := NewRepository(db)
	created := insertReceipt(t, repo, uuid.New(), "Test Store")
	other := insertReceipt(t, repo, uuid.New(), "Other Store")

	ctx := context.Background()
	for _, change := range []models.ReceiptChange{
		{ID: uuid.New(), ReceiptID: created.ID, FieldName: "vendor", NewValue: "Renamed Store", ChangedAt: time.Now().UTC(), ChangedBy: "user@example.com"},
		{ID: uuid.New(), ReceiptID: created.ID, FieldName: "status", NewValue: "approved", ChangedAt: time.Now().UTC(), ChangedBy: "user@example.com"},
		{ID: uuid.New(), ReceiptID: other.ID, FieldName: "amount", NewValue: "9.99", ChangedAt: time.Now().UTC(), ChangedBy: "user@example.com"},
	} {
		require.NoError(t, db.WithContext(ctx).Create(&change).Error)
	}

	require.NoError(t, repo.Delete(ctx, created.ID))

	var orphaned int64
	require.NoError(t, db.Model(&models.ReceiptChange{}).
		Where("receipt_id = ?", created.ID).
		Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	var kept int64
	require.NoError(t, db.Model(&models.ReceiptChange{}).
		Where("receipt_id = ?", other.ID).
		Count(&kept).Error)
	assert.EqualValues(t, 1, kept)
}

func TestRepository_DistinctVendorsExcludesSentinel(t *testing.T) {
	repo := NewRepository(setupReceiptsTestDB(t))
	userID := uuid.New()

	insertReceipt(t, repo, userID, "Beta Store")
	insertReceipt(t, repo, userID, "Alpha Store")
	insertReceipt(t, repo, userID, "Alpha Store")
	insertReceipt(t, repo, userID, "Missing")

	vendors, err := repo.DistinctVendors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha Store", "Beta Store"}, vendors)
}

func TestRepository_WithTxRollsBack(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	id := uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Create(ctx, &models.Receipt{
			ID:        id,
			UserID:    uuid.New(),
			ImagePath: "x.png",
			Vendor:    "Tx Store",
			Amount:    "1.00",
			Date:      "2024-01-20",
		}); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = repo.FindByID(ctx, id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
