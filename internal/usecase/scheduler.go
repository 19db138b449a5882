package usecase

import (
	"context"
	"time"

	"RxivScanner/internal/ports"
)

// Scheduler wires the ticker driver with the pipeline use case so a batch
// for "yesterday" runs on every trigger.
type Scheduler struct {
	driver   ports.Scheduler
	pipeline *Pipeline
	params   Params
	location *time.Location
}

// NewScheduler returns a helper to start/stop recurring batches. Each
// trigger re-derives the start date from the trigger time in loc.
func NewScheduler(driver ports.Scheduler, pipeline *Pipeline, params Params, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{driver: driver, pipeline: pipeline, params: params, location: loc}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		params := s.params
		params.StartDate = trigger.In(s.location).AddDate(0, 0, -1).Format(dateLayout)
		_ = s.pipeline.Run(ctx, params)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
