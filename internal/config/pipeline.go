package config

import (
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/buildconfig/internal/logfields"
	"git.home.luguber.info/inful/buildconfig/internal/metrics"
)

// stage is one step of a validation pass. needs names the stages whose
// results it reads.
type stage struct {
	name  string
	needs []string
	run   func() error
}

// pipeline runs stages strictly in declaration order.
type pipeline struct {
	stages []stage
}

// newPipeline checks that every stage only depends on stages declared before
// it. A violation is a programming error and panics.
func newPipeline(stages ...stage) *pipeline {
	seen := make(map[string]bool, len(stages))
	for _, s := range stages {
		if seen[s.name] {
			panic(fmt.Sprintf("config: duplicate stage %q", s.name))
		}
		for _, dep := range s.needs {
			if !seen[dep] {
				panic(fmt.Sprintf("config: stage %q needs %q, which does not run before it", s.name, dep))
			}
		}
		seen[s.name] = true
	}
	return &pipeline{stages: stages}
}

// names returns the stage names in run order.
func (p *pipeline) names() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.name
	}
	return out
}

// run stops at the first failing stage.
func (p *pipeline) run(logger *slog.Logger, recorder metrics.Recorder) error {
	for _, s := range p.stages {
		start := time.Now()
		err := s.run()
		elapsed := time.Since(start)
		recorder.ObserveStageDuration(s.name, elapsed)
		if err != nil {
			logger.Debug("Validation stage failed",
				logfields.Stage(s.name),
				logfields.DurationMS(float64(elapsed.Microseconds())/1000),
				logfields.Error(err))
			return err
		}
		logger.Debug("Validation stage complete",
			logfields.Stage(s.name),
			logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	}
	return nil
}

// memo is a single-assignment value computed by one stage and read by later
// ones.
type memo[T any] struct {
	name  string
	value T
	set   bool
}

func (m *memo[T]) assign(v T) {
	if m.set {
		panic(fmt.Sprintf("config: %s assigned twice", m.name))
	}
	m.value, m.set = v, true
}

func (m *memo[T]) get() T {
	if !m.set {
		panic(fmt.Sprintf("config: %s read before it was resolved", m.name))
	}
	return m.value
}
