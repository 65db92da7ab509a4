package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics tracks the receipt extraction pipeline.
type PipelineMetrics struct {
	extractionDuration prometheus.Histogram
	uploads            *prometheus.CounterVec
	cleaningFailures   prometheus.Counter
	categoryFallbacks  prometheus.Counter
}

// NewPipelineMetrics registers the pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	extractionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "receipt_extraction_duration_seconds",
		Help:    "Duration of vision model extraction calls in seconds.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "receipt_uploads_total",
		Help: "Receipt uploads by outcome.",
	}, []string{"outcome"})
	cleaningFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipt_cleaning_failures_total",
		Help: "Model responses that could not be reduced to parseable JSON.",
	})
	categoryFallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "receipt_category_fallbacks_total",
		Help: "Categorizations that fell back to the default category.",
	})
	reg.MustRegister(extractionDuration, uploads, cleaningFailures, categoryFallbacks)
	return &PipelineMetrics{
		extractionDuration: extractionDuration,
		uploads:            uploads,
		cleaningFailures:   cleaningFailures,
		categoryFallbacks:  categoryFallbacks,
	}
}

// ObserveExtractionDuration records one vision model call.
func (p *PipelineMetrics) ObserveExtractionDuration(d time.Duration) {
	if p == nil || p.extractionDuration == nil {
		return
	}
	p.extractionDuration.Observe(d.Seconds())
}

// IncUpload counts an upload with the given outcome label.
func (p *PipelineMetrics) IncUpload(outcome string) {
	if p == nil || p.uploads == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	p.uploads.WithLabelValues(outcome).Inc()
}

// IncCleaningFailure counts an unparseable model response.
func (p *PipelineMetrics) IncCleaningFailure() {
	if p == nil || p.cleaningFailures == nil {
		return
	}
	p.cleaningFailures.Inc()
}

// IncCategoryFallback counts a fallback categorization.
func (p *PipelineMetrics) IncCategoryFallback() {
	if p == nil || p.categoryFallbacks == nil {
		return
	}
	p.categoryFallbacks.Inc()
}
