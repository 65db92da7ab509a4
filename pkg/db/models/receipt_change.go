package models

import (
	"time"

	"github.com/google/uuid"
)

// ReceiptChange is one immutable entry in a receipt's change history. Rows are
// only ever inserted; deletion happens solely via the receipt cascade.
type ReceiptChange struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ReceiptID uuid.UUID `gorm:"column:receipt_id;type:uuid;not null;index"`
	FieldName string    `gorm:"column:field_name;not null"`
	NewValue  string    `gorm:"column:new_value;not null"`
	ChangedAt time.Time `gorm:"column:changed_at;not null"`
	ChangedBy string    `gorm:"column:changed_by;not null"`
}

func (ReceiptChange) TableName() string {
	return "receipt_changes"
}
