package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/receiptwise/backend/pkg/db/models"
)

// DefaultActor is recorded when no authenticated actor is attributed to a
// change, matching automated pipeline edits.
const DefaultActor = "system"

// Service defines operations on the append-only change ledger. Entries are
// never updated or deleted individually.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordChangeInput) (*models.ReceiptChange, error)
	ListByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]models.ReceiptChange, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// RecordChangeInput captures one field transition on a receipt.
type RecordChangeInput struct {
	ReceiptID uuid.UUID `json:"receipt_id"`
	FieldName string    `json:"field_name"`
	NewValue  string    `json:"new_value"`
	ChangedBy string    `json:"changed_by"`
}

// NewService wires a history service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), now: s.now}
}

func (s *service) Record(ctx context.Context, input RecordChangeInput) (*models.ReceiptChange, error) {
	if input.ReceiptID == uuid.Nil {
		return nil, fmt.Errorf("receipt id is required")
	}
	if input.FieldName == "" {
		return nil, fmt.Errorf("field name is required")
	}
	actor := input.ChangedBy
	if actor == "" {
		actor = DefaultActor
	}

	change := &models.ReceiptChange{
		ReceiptID: input.ReceiptID,
		FieldName: input.FieldName,
		NewValue:  input.NewValue,
		ChangedAt: s.now().UTC(),
		ChangedBy: actor,
	}

	if err := s.repo.Create(ctx, change); err != nil {
		return nil, err
	}
	return change, nil
}

func (s *service) ListByReceiptID(ctx context.Context, receiptID uuid.UUID) ([]models.ReceiptChange, error) {
	if receiptID == uuid.Nil {
		return nil, fmt.Errorf("receipt id is required")
	}
	return s.repo.ListByReceiptID(ctx, receiptID)
}
