package receipts

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/receiptwise/backend/pkg/db/models"
	"github.com/receiptwise/backend/pkg/logger"
)

type fakeImageStore struct {
	files     []string
	removed   []string
	removeErr map[string]error
}

func (f *fakeImageStore) List(ctx context.Context) ([]string, error) {
	return f.files, nil
}

func (f *fakeImageStore) Remove(ctx context.Context, ref string) error {
	if err, ok := f.removeErr[ref]; ok {
		return err
	}
	f.removed = append(f.removed, ref)
	return nil
}

func newSweepJob(t *testing.T, repo Repository, images imageStore) *SweepJob {
	t.Helper()
	job, err := NewSweepJob(SweepJobParams{
		Logger: logger.New(logger.Options{ServiceName: "sweep-test", Output: io.Discard}),
		DB:     stubTxRunner{},
		Repo:   repo,
		Images: images,
	})
	require.NoError(t, err)
	return job
}

func TestSweepJob_RemovesOrphanedImages(t *testing.T) {
	repo := newFakeRepo()
	kept := &models.Receipt{ID: uuid.New(), UserID: uuid.New(), ImagePath: "kept.png"}
	repo.receipts[kept.ID] = kept

	images := &fakeImageStore{files: []string{"kept.png", "orphan-1.png", "orphan-2.png"}}
	job := newSweepJob(t, repo, images)

	require.NoError(t, job.Run(context.Background()))
	assert.ElementsMatch(t, []string{"orphan-1.png", "orphan-2.png"}, images.removed)
}

func TestSweepJob_NormalizesLegacyFullPaths(t *testing.T) {
	repo := newFakeRepo()
	legacy := &models.Receipt{ID: uuid.New(), UserID: uuid.New(), ImagePath: "/srv/uploads/legacy.png"}
	repo.receipts[legacy.ID] = legacy

	images := &fakeImageStore{files: []string{"legacy.png"}}
	job := newSweepJob(t, repo, images)

	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, "legacy.png", repo.receipts[legacy.ID].ImagePath)
	assert.Empty(t, images.removed, "normalized reference must protect its file")
}

func TestSweepJob_CollectsRemovalErrors(t *testing.T) {
	repo := newFakeRepo()
	images := &fakeImageStore{
		files:     []string{"stuck.png", "orphan.png"},
		removeErr: map[string]error{"stuck.png": errors.New("permission denied")},
	}
	job := newSweepJob(t, repo, images)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stuck.png")
	assert.Equal(t, []string{"orphan.png"}, images.removed)
}
