package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/warp/segment-olap/logging"
)

// Recorder observes completed runs. The metrics package implements it.
type Recorder interface {
	ObserveRun(d Diagnostics, elapsed time.Duration, err error)
}

// Pipeline builds the model and runs the analyses for one dataset.
type Pipeline struct {
	Options  ModelOptions
	Recorder Recorder // optional
	Now      func() time.Time
}

// NewPipeline creates a pipeline with the given model options.
func NewPipeline(opts ModelOptions, rec Recorder) *Pipeline {
	return &Pipeline{Options: opts, Recorder: rec, Now: time.Now}
}

// Run executes one batch: model build, then every analysis. Structural
// input errors abort the run; value-level anomalies end up in the
// report's Diagnostics.
func (p *Pipeline) Run(ctx context.Context, ds Dataset) (report *Report, err error) {
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	log := logging.FromContext(ctx)
	start := p.now()

	defer func() {
		if p.Recorder != nil {
			var d Diagnostics
			if report != nil {
				d = report.Diagnostics
			}
			p.Recorder.ObserveRun(d, p.now().Sub(start), err)
		}
	}()

	log.Info("starting segment analysis",
		"sales", len(ds.Sales), "customers", len(ds.Customers), "products", len(ds.Products))

	model, err := BuildModel(ctx, ds.Sales, ds.Customers, ds.Products, p.Options)
	if err != nil {
		log.Error("failed to build fact-dimension model", "error", err)
		return nil, fmt.Errorf("build model: %w", err)
	}

	report, err = Analyze(ctx, model.Rows)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	report.RunID = runID
	report.GeneratedAt = p.now().UTC()
	report.Diagnostics = model.Diagnostics

	if report.IsEmpty() {
		log.Warn("no data available for analysis")
	}
	log.Info("segment analysis completed",
		"segment_region_rows", len(report.SegmentRegion),
		"segment_subcategory_rows", len(report.SegmentSubcategory),
		"drilldown_rows", len(report.SegmentSubcategoryRegion),
		"coercion_failures", model.Diagnostics.CoercionFailures())
	return report, nil
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
