package receipts

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/receiptwise/backend/internal/extraction"
	"github.com/receiptwise/backend/internal/history"
	"github.com/receiptwise/backend/pkg/db/models"
	"github.com/receiptwise/backend/pkg/enums"
	pkgerrors "github.com/receiptwise/backend/pkg/errors"
	"github.com/receiptwise/backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ImageRemover deletes a stored receipt image by reference. Removal failure
// is logged and does not block record deletion; the database row is the
// source of truth.
type ImageRemover interface {
	Remove(ctx context.Context, ref string) error
}

// Service owns the canonical receipt entity: creation from an extraction
// result, validated transactional updates with change records, and deletion
// with history cascade.
type Service interface {
	Create(ctx context.Context, input CreateReceiptInput) (*models.Receipt, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Receipt, error)
	Update(ctx context.Context, input UpdateReceiptInput) (*UpdateReceiptResult, error)
	Delete(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, id uuid.UUID) ([]models.ReceiptChange, error)
	DistinctVendors(ctx context.Context) ([]string, error)
}

type service struct {
	repo      Repository
	history   history.Service
	tx        txRunner
	validator *Validator
	images    ImageRemover
	logg      *logger.Logger
}

// CreateReceiptInput carries everything a fresh receipt needs. Extraction may
// have failed; the receipt is created regardless, with the failure marker in
// its content.
type CreateReceiptInput struct {
	UserID     uuid.UUID
	ImagePath  string
	Extraction *extraction.Result
	Category   string
}

// UpdateReceiptInput is a validated-or-rejected partial update.
type UpdateReceiptInput struct {
	ReceiptID uuid.UUID
	Fields    UpdateFields
	ChangedBy string
}

// UpdateReceiptResult reports which fields actually changed alongside the
// updated receipt.
type UpdateReceiptResult struct {
	Receipt       *models.Receipt
	UpdatedFields map[string]string
}

// NewService builds a receipt service with the required dependencies.
func NewService(repo Repository, hist history.Service, tx txRunner, validator *Validator, images ImageRemover, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("receipts repository required")
	}
	if hist == nil {
		return nil, fmt.Errorf("history service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if validator == nil {
		return nil, fmt.Errorf("validator required")
	}
	if images == nil {
		return nil, fmt.Errorf("image remover required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		history:   hist,
		tx:        tx,
		validator: validator,
		images:    images,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateReceiptInput) (*models.Receipt, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.ImagePath == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image path required")
	}
	if input.Extraction == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "extraction result required")
	}

	receipt := &models.Receipt{
		UserID:        input.UserID,
		ImagePath:     input.ImagePath,
		Vendor:        input.Extraction.Vendor(),
		Amount:        input.Extraction.Amount(),
		Date:          input.Extraction.Date(),
		PaymentMethod: input.Extraction.PaymentMethod(),
		Category:      input.Category,
		Status:        enums.ReceiptStatusPending,
		Content:       input.Extraction.StoredContent(),
	}
	if err := s.repo.Create(ctx, receipt); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create receipt")
	}
	return receipt, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt id required")
	}
	receipt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}
	return receipt, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Receipt, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	receipts, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list receipts")
	}
	return receipts, nil
}

// Update applies a partial field update. Validation runs against the
// persisted status first; if any field fails, nothing is written. Field
// writes and their change records commit as one transaction, and fields
// submitted with their current value produce no write and no record.
func (s *service) Update(ctx context.Context, input UpdateReceiptInput) (*UpdateReceiptResult, error) {
	if input.ReceiptID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt id required")
	}
	if input.Fields.Empty() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields submitted")
	}

	// The transition check needs the persisted status. This read is advisory;
	// the transaction re-checks against the locked row. A missing receipt is
	// not a validation error; it surfaces as NotFound inside the transaction.
	var current *enums.ReceiptStatus
	if existing, err := s.repo.FindByID(ctx, input.ReceiptID); err == nil {
		current = &existing.Status
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
	}

	fields, fieldErrs := s.validator.Validate(input.Fields, current)
	if len(fieldErrs) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid field values").
			WithDetails(fieldErrs)
	}

	var result *UpdateReceiptResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		hist := s.history.WithTx(tx)

		receipt, err := repo.FindByIDForUpdate(ctx, input.ReceiptID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
		}

		// The status may have moved between the advisory read and the lock.
		// Re-check the transition against the row this transaction owns.
		if fields.Status != nil {
			target := enums.ReceiptStatus(*fields.Status)
			if !receipt.Status.CanTransitionTo(target) {
				return pkgerrors.New(pkgerrors.CodeValidation, "Invalid field values").
					WithDetails(FieldErrors{"status": fmt.Sprintf(
						"Status cannot change from %s to %s", receipt.Status, target)})
			}
		}

		updates := map[string]any{}
		updated := map[string]string{}
		for _, change := range diffFields(receipt, fields) {
			if _, err := hist.Record(ctx, history.RecordChangeInput{
				ReceiptID: receipt.ID,
				FieldName: change.name,
				NewValue:  change.value,
				ChangedBy: input.ChangedBy,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record change")
			}
			updates[change.name] = change.value
			updated[change.name] = change.value
			change.apply(receipt)
		}

		if err := repo.Update(ctx, receipt.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update receipt")
		}
		result = &UpdateReceiptResult{Receipt: receipt, UpdatedFields: updated}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes the receipt row, cascading its change history, then asks the
// image collaborator to remove the stored file. Image removal failure is
// logged and does not undo the deletion.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "receipt id required")
	}

	var imagePath string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		receipt, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "receipt not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load receipt")
		}
		imagePath = receipt.ImagePath
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete receipt")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if imagePath != "" {
		if err := s.images.Remove(ctx, imagePath); err != nil {
			ctx = s.logg.WithReceiptID(ctx, id.String())
			s.logg.Error(ctx, "failed to remove receipt image", err)
		}
	}
	return nil
}

// History lists the receipt's change records, newest first. A receipt with no
// recorded changes yields an empty list; an unknown receipt yields NotFound.
func (s *service) History(ctx context.Context, id uuid.UUID) ([]models.ReceiptChange, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	changes, err := s.history.ListByReceiptID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list receipt history")
	}
	return changes, nil
}

func (s *service) DistinctVendors(ctx context.Context) ([]string, error) {
	vendors, err := s.repo.DistinctVendors(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}
	return vendors, nil
}

type fieldChange struct {
	name  string
	value string
	apply func(*models.Receipt)
}

// diffFields returns one change per submitted field whose value differs from
// the stored one. Equal values are dropped so no history entry is written for
// no-op submissions.
func diffFields(receipt *models.Receipt, fields UpdateFields) []fieldChange {
	var changes []fieldChange
	add := func(name, oldValue, newValue string, apply func(*models.Receipt)) {
		if oldValue == newValue {
			return
		}
		changes = append(changes, fieldChange{name: name, value: newValue, apply: apply})
	}

	if fields.Vendor != nil {
		value := *fields.Vendor
		add("vendor", receipt.Vendor, value, func(r *models.Receipt) { r.Vendor = value })
	}
	if fields.Amount != nil {
		value := *fields.Amount
		add("amount", receipt.Amount, value, func(r *models.Receipt) { r.Amount = value })
	}
	if fields.Date != nil {
		value := *fields.Date
		add("date", receipt.Date, value, func(r *models.Receipt) { r.Date = value })
	}
	if fields.PaymentMethod != nil {
		value := *fields.PaymentMethod
		add("payment_method", receipt.PaymentMethod, value, func(r *models.Receipt) { r.PaymentMethod = value })
	}
	if fields.Category != nil {
		value := *fields.Category
		add("category", receipt.Category, value, func(r *models.Receipt) { r.Category = value })
	}
	if fields.Status != nil {
		value := *fields.Status
		add("status", string(receipt.Status), value, func(r *models.Receipt) { r.Status = enums.ReceiptStatus(value) })
	}
	return changes
}
