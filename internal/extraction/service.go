package extraction

import (
	"context"
	"errors"
	"time"

	"github.com/receiptwise/backend/pkg/logger"
	"github.com/receiptwise/backend/pkg/metrics"
)

// Service runs the image-to-fields stage of the pipeline: one model call,
// response cleaning, flattening. Failures at any point are folded into the
// Result so the caller can still create the receipt with a failure marker.
type Service struct {
	model   ModelClient
	timeout time.Duration
	metrics *metrics.PipelineMetrics
	logg    *logger.Logger
}

func NewService(model ModelClient, timeout time.Duration, pm *metrics.PipelineMetrics, logg *logger.Logger) (*Service, error) {
	if model == nil {
		return nil, errors.New("extraction: model client is required")
	}
	if logg == nil {
		return nil, errors.New("extraction: logger is required")
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Service{
		model:   model,
		timeout: timeout,
		metrics: pm,
		logg:    logg,
	}, nil
}

// Extract reads one receipt image. It never fails the request: model and
// parse errors come back inside the Result.
func (s *Service) Extract(ctx context.Context, image []byte, mimeType string) *Result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.model.ExtractReceipt(ctx, image, mimeType)
	s.metrics.ObserveExtractionDuration(time.Since(start))
	if err != nil {
		s.logg.Error(ctx, "vision model call failed", err)
		return &Result{Failure: &Failure{Stage: StageModelCall, Err: err}}
	}

	result := Parse(raw)
	if result.Failed() {
		s.metrics.IncCleaningFailure()
		ctx = s.logg.WithField(ctx, "attempted", result.Failure.Attempted)
		s.logg.Warn(ctx, "model response did not clean to valid JSON")
	}
	return result
}
