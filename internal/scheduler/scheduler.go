// Package scheduler triggers scan passes for the lifetime of a page.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc"

	"github.com/jmylchreest/adsift/internal/logger"
)

// Config controls pass timing.
type Config struct {
	// InitialDelay is the wait between page load and the first pass, giving
	// dynamically rendered lists time to appear.
	InitialDelay time.Duration `validate:"gte=0"`
	// Interval is the time between the starts of consecutive passes.
	Interval time.Duration `validate:"gt=0"`
}

// DefaultConfig returns the standard timing: first pass after 2s, then
// every 10s.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 2 * time.Second,
		Interval:     10 * time.Second,
	}
}

// Task is one scan pass. It must not rely on state from earlier passes.
type Task func(ctx context.Context)

// ErrAlreadyStarted is returned when Run is called more than once.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Scheduler starts Task after the initial delay and then on every interval
// tick. Each start runs in its own goroutine and is never awaited by the
// ticker, so a slow pass overlaps with the next one instead of delaying it.
type Scheduler struct {
	config  Config
	task    Task
	started atomic.Bool
	runs    atomic.Int64
	passes  conc.WaitGroup
}

var validate = validator.New()

// New creates a scheduler for task.
func New(cfg Config, task Task) (*Scheduler, error) {
	if task == nil {
		return nil, errors.New("scheduler: nil task")
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid scheduler config: %w", err)
	}
	return &Scheduler{config: cfg, task: task}, nil
}

// Run blocks until ctx is done and every started pass has returned. It may
// be called once.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	defer s.passes.Wait()

	logger.Debug("scheduler started",
		"initial_delay", s.config.InitialDelay,
		"interval", s.config.Interval)

	delay := time.NewTimer(s.config.InitialDelay)
	defer delay.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-delay.C:
	}

	s.fire(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("scheduler stopped", "runs", s.runs.Load())
			return nil
		case <-ticker.C:
			s.fire(ctx)
		}
	}
}

// Runs returns how many passes have been started.
func (s *Scheduler) Runs() int64 {
	return s.runs.Load()
}

func (s *Scheduler) fire(ctx context.Context) {
	n := s.runs.Add(1)
	logger.Debug("starting scan pass", "run", n)
	s.passes.Go(func() { s.task(ctx) })
}
