package receipts

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/receiptwise/backend/pkg/logger"
)

// imageStore is the slice of the storage layer the sweep needs: enumerate
// stored files and remove one.
type imageStore interface {
	List(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, ref string) error
}

// SweepJobParams configures the storage sweep.
type SweepJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Repo   Repository
	Images imageStore
}

// SweepJob reconciles the image store against the receipt table. It rewrites
// legacy full-path image references down to their basename, then removes
// stored files no receipt references. File removal errors are collected so
// one stuck file does not stop the rest of the sweep.
type SweepJob struct {
	logg   *logger.Logger
	db     txRunner
	repo   Repository
	images imageStore
	now    func() time.Time
}

func NewSweepJob(params SweepJobParams) (*SweepJob, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("receipts repository required")
	}
	if params.Images == nil {
		return nil, fmt.Errorf("image store required")
	}
	return &SweepJob{
		logg:   params.Logger,
		db:     params.DB,
		repo:   params.Repo,
		images: params.Images,
		now:    time.Now,
	}, nil
}

func (j *SweepJob) Name() string { return "receipt-image-sweep" }

func (j *SweepJob) Run(ctx context.Context) error {
	var (
		normalized int
		referenced map[string]struct{}
	)
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		rows, err := repo.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("list receipts: %w", err)
		}
		referenced = make(map[string]struct{}, len(rows))
		for _, receipt := range rows {
			ref := receipt.ImagePath
			if strings.Contains(ref, "/") {
				ref = path.Base(ref)
				if err := repo.Update(ctx, receipt.ID, map[string]any{"image_path": ref}); err != nil {
					return fmt.Errorf("normalize image path: %w", err)
				}
				normalized++
			}
			if ref != "" {
				referenced[ref] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("receipt image sweep: %w", err)
	}

	stored, err := j.images.List(ctx)
	if err != nil {
		return fmt.Errorf("list stored images: %w", err)
	}

	var removed int
	var removeErrs error
	for _, name := range stored {
		if _, ok := referenced[name]; ok {
			continue
		}
		if err := j.images.Remove(ctx, name); err != nil {
			removeErrs = multierr.Append(removeErrs, fmt.Errorf("remove %s: %w", name, err))
			continue
		}
		removed++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"stored":     len(stored),
		"referenced": len(referenced),
		"normalized": normalized,
		"removed":    removed,
	})
	j.logg.Info(logCtx, "receipt image sweep complete")
	return removeErrs
}
