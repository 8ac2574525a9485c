package alerting

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs the evaluator once a minute.
const DefaultSchedule = "* * * * *"

// Scheduler drives periodic alert evaluation with a cron expression,
// plus an on-demand wake channel for callers that just ingested
// records and want a prompt check.
type Scheduler struct {
	cron      *cron.Cron
	evaluator *Evaluator
	schedule  string

	wake   chan struct{}
	done   chan struct{}
	cancel context.CancelFunc
}

// cronLogger adapts the standard logger to cron.Logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Printf("cron: %s: %v", msg, err)
}

// NewScheduler creates a scheduler for the evaluator. An empty
// schedule uses DefaultSchedule.
func NewScheduler(evaluator *Evaluator, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Scheduler{
		cron:      cron.New(cron.WithChain(cron.Recover(cronLogger{}))),
		evaluator: evaluator,
		schedule:  schedule,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Start begins periodic evaluation. It returns immediately; evaluation
// runs on the cron goroutine and the wake loop.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.run(ctx)
	}); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()

	go func() {
		defer close(s.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				s.run(ctx)
			}
		}
	}()

	log.Printf("alert scheduler started (schedule %q)", s.schedule)
	return nil
}

// Stop halts the scheduler and waits for any running evaluation.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	<-s.done
}

// Wake requests an immediate evaluation. It never blocks; back-to-back
// wakes coalesce into one run.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Scheduler) run(ctx context.Context) {
	if err := s.evaluator.EvaluateAll(ctx); err != nil {
		log.Printf("alert evaluation: %v", err)
	}
}
