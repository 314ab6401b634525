package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Stage is one named step of an analysis run. Stages communicate only
// through the shared Analysis.
type Stage struct {
	Name string
	Run  func(ctx context.Context, a *Analysis) error
}

// Pipeline runs stages in order and stops at the first failure.
type Pipeline struct {
	stages []Stage
	log    *zap.Logger
}

// NewPipeline creates a pipeline over the given stages.
func NewPipeline(log *zap.Logger, stages ...Stage) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{stages: stages, log: log}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Run executes every stage against a. The returned error names the stage
// that failed and wraps its cause.
func (p *Pipeline) Run(ctx context.Context, a *Analysis) error {
	for _, s := range p.stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("stage %s: %w", s.Name, err)
		}
		start := time.Now()
		err := s.Run(ctx, a)
		elapsed := time.Since(start)
		if err != nil {
			p.log.Error("stage failed", zap.String("stage", s.Name), zap.Duration("elapsed", elapsed), zap.Error(err))
			return fmt.Errorf("stage %s: %w", s.Name, err)
		}
		a.Timings = append(a.Timings, StageTiming{Stage: s.Name, Elapsed: elapsed})
		p.log.Info("stage finished", zap.String("stage", s.Name), zap.Duration("elapsed", elapsed))
	}
	return nil
}
