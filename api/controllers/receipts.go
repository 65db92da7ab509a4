package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/receiptwise/backend/api/middleware"
	"github.com/receiptwise/backend/api/responses"
	"github.com/receiptwise/backend/api/validators"
	"github.com/receiptwise/backend/internal/extraction"
	"github.com/receiptwise/backend/internal/receipts"
	"github.com/receiptwise/backend/pkg/config"
	"github.com/receiptwise/backend/pkg/db/models"
	pkgerrors "github.com/receiptwise/backend/pkg/errors"
	"github.com/receiptwise/backend/pkg/logger"
	"github.com/receiptwise/backend/pkg/metrics"
	"github.com/receiptwise/backend/pkg/storage/local"
)

// Extractor reads structured fields out of a receipt image.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) *extraction.Result
}

// Categorizer assigns an expense category; it never fails.
type Categorizer interface {
	Categorize(ctx context.Context, vendor string, textLines []string) string
}

// ImageStore is the slice of the storage layer the receipt controllers need.
type ImageStore interface {
	Save(ctx context.Context, fileName string, r io.Reader, maxBytes int64) (string, error)
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Remove(ctx context.Context, ref string) error
}

var allowedUploadExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".pdf":  {},
}

// ReceiptView is the externally observable receipt shape.
type ReceiptView struct {
	ID            uuid.UUID       `json:"id"`
	ImagePath     string          `json:"image_path"`
	Vendor        string          `json:"vendor"`
	Amount        string          `json:"amount"`
	Date          string          `json:"date"`
	PaymentMethod string          `json:"payment_method"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	Content       json.RawMessage `json:"content"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func newReceiptView(receipt *models.Receipt) ReceiptView {
	return ReceiptView{
		ID:            receipt.ID,
		ImagePath:     receipt.ImagePath,
		Vendor:        receipt.Vendor,
		Amount:        receipt.Amount,
		Date:          receipt.Date,
		PaymentMethod: receipt.PaymentMethod,
		Category:      receipt.Category,
		Status:        string(receipt.Status),
		Content:       receipt.Content,
		CreatedAt:     receipt.CreatedAt,
		UpdatedAt:     receipt.UpdatedAt,
	}
}

// ChangeView is the externally observable history entry shape.
type ChangeView struct {
	Field     string `json:"field"`
	NewValue  string `json:"new_value"`
	ChangedAt string `json:"changed_at"`
	ChangedBy string `json:"changed_by"`
}

// UploadReceipt accepts one multipart image, stores it, runs extraction and
// categorization, and creates the receipt. Extraction failure does not fail
// the upload: the receipt is created with the failure marker in its content.
func UploadReceipt(svc receipts.Service, extractor Extractor, categorizer Categorizer, store ImageStore, cfg config.UploadConfig, pm *metrics.PipelineMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(cfg.MaxUploadBytes()); err != nil {
			pm.IncUpload("rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "No file part in request"))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			pm.IncUpload("rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "No file part in request"))
			return
		}
		defer file.Close()

		fileName := strings.TrimSpace(header.Filename)
		if fileName == "" {
			pm.IncUpload("rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "No selected file"))
			return
		}
		ext := strings.ToLower(filepath.Ext(fileName))
		if _, ok := allowedUploadExtensions[ext]; !ok {
			pm.IncUpload("rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Invalid file type").
				WithDetails(map[string]any{"allowed_types": []string{"png", "jpg", "jpeg", "gif", "pdf"}}))
			return
		}

		image, err := io.ReadAll(io.LimitReader(file, cfg.MaxUploadBytes()+1))
		if err != nil {
			pm.IncUpload("failed")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read upload"))
			return
		}
		if int64(len(image)) > cfg.MaxUploadBytes() {
			pm.IncUpload("rejected")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "File too large"))
			return
		}

		ref, err := store.Save(ctx, fileName, bytes.NewReader(image), cfg.MaxUploadBytes())
		if err != nil {
			pm.IncUpload("failed")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store upload"))
			return
		}

		result := extractor.Extract(ctx, image, uploadMIMEType(ext))

		category := config.FallbackCategory
		if !result.Failed() {
			category = categorizer.Categorize(ctx, result.Vendor(), result.TextLines())
		}

		receipt, err := svc.Create(ctx, receipts.CreateReceiptInput{
			UserID:     userID,
			ImagePath:  ref,
			Extraction: result,
			Category:   category,
		})
		if err != nil {
			if removeErr := store.Remove(ctx, ref); removeErr != nil {
				logg.Error(ctx, "failed to remove image after create failure", removeErr)
			}
			pm.IncUpload("failed")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if result.Failed() {
			pm.IncUpload("extraction_failed")
		} else {
			pm.IncUpload("ok")
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newReceiptView(receipt))
	}
}

// ListReceipts returns the authenticated user's receipts.
func ListReceipts(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := authedUserID(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		listed, err := svc.List(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]ReceiptView, 0, len(listed))
		for i := range listed {
			views = append(views, newReceiptView(&listed[i]))
		}
		responses.WriteSuccess(w, views)
	}
}

// GetReceipt returns one receipt by id.
func GetReceipt(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := receiptIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		receipt, err := svc.Get(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newReceiptView(receipt))
	}
}

type updateReceiptResponse struct {
	Success       bool              `json:"success"`
	ReceiptID     uuid.UUID         `json:"receipt_id"`
	UpdatedFields map[string]string `json:"updated_fields"`
	UpdatedAt     string            `json:"updated_at"`
	Receipt       ReceiptView       `json:"receipt"`
}

// UpdateReceipt applies a validated partial field update and reports which
// fields actually changed.
func UpdateReceipt(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := receiptIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var fields receipts.UpdateFields
		if err := validators.DecodeJSONBody(r, &fields); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Update(ctx, receipts.UpdateReceiptInput{
			ReceiptID: id,
			Fields:    fields,
			ChangedBy: middleware.UserEmailFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, updateReceiptResponse{
			Success:       true,
			ReceiptID:     id,
			UpdatedFields: result.UpdatedFields,
			UpdatedAt:     time.Now().UTC().Format(time.RFC3339),
			Receipt:       newReceiptView(result.Receipt),
		})
	}
}

// DeleteReceipt removes a receipt, its history and its stored image.
func DeleteReceipt(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := receiptIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "Receipt deleted successfully"})
	}
}

// ReceiptHistory lists a receipt's change records, newest first.
func ReceiptHistory(svc receipts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id, err := receiptIDParam(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		changes, err := svc.History(ctx, id)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]ChangeView, 0, len(changes))
		for _, change := range changes {
			views = append(views, ChangeView{
				Field:     change.FieldName,
				NewValue:  change.NewValue,
				ChangedAt: change.ChangedAt.UTC().Format(time.RFC3339),
				ChangedBy: change.ChangedBy,
			})
		}
		responses.WriteSuccess(w, views)
	}
}

// ReceiptImage streams a stored receipt image.
func ReceiptImage(store ImageStore, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		fileName := chi.URLParam(r, "fileName")
		if fileName == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file name required"))
			return
		}

		reader, err := store.Open(ctx, fileName)
		if err != nil {
			if errors.Is(err, local.ErrNotFound) {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "image not found"))
				return
			}
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open image"))
			return
		}
		defer reader.Close()

		w.Header().Set("Content-Type", uploadMIMEType(strings.ToLower(filepath.Ext(fileName))))
		if _, err := io.Copy(w, reader); err != nil {
			logg.Error(ctx, "failed to stream image", err)
		}
	}
}

func authedUserID(ctx context.Context) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}
	return userID, nil
}

func receiptIDParam(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "receiptID")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid receipt id")
	}
	return id, nil
}

func uploadMIMEType(ext string) string {
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "image/jpeg"
}
