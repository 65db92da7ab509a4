package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/receiptwise/backend/pkg/enums"
)

// Receipt is the canonical record built from a receipt image upload.
//
// Vendor, Amount, Date and PaymentMethod hold the extracted text verbatim (or
// the Missing sentinel); values are only ever replaced through the validated
// update path. Content keeps the cleaned extraction, or the cleaning failure
// description, for traceability.
type Receipt struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ImagePath     string              `gorm:"column:image_path;not null"`
	Vendor        string              `gorm:"column:vendor;not null"`
	Amount        string              `gorm:"column:amount;not null"`
	Date          string              `gorm:"column:date;not null"`
	PaymentMethod string              `gorm:"column:payment_method;not null"`
	Category      string              `gorm:"column:category;not null"`
	Status        enums.ReceiptStatus `gorm:"column:status;not null;default:pending"`
	Content       json.RawMessage     `gorm:"column:content;type:jsonb"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Receipt) TableName() string {
	return "receipts"
}
