// Package scheduler runs periodic actions on a single goroutine by polling their
// deadlines. An action blocks the loop while it runs; every other task is checked
// again on the next iteration.
package scheduler

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	logger "github.com/sirupsen/logrus"
)

// Action is the work done when a task is due. now is the time the task was found due.
type Action func(ctx context.Context, now time.Time)

type Task struct {
	Name     string
	Interval time.Duration
	action   Action
	last     time.Time
	fired    uint64
}

// Fired returns how many times the task has run.
func (t *Task) Fired() uint64 {
	return t.fired
}

// Due reports whether the interval has elapsed since the task last ran.
func (t *Task) Due(now time.Time) bool {
	return now.Sub(t.last) >= t.Interval
}

type Scheduler struct {
	clock clockwork.Clock
	tasks []*Task
	idle  time.Duration
}

// New returns a scheduler that sleeps idle between loop iterations.
func New(clock clockwork.Clock, idle time.Duration) *Scheduler {
	return &Scheduler{
		clock: clock,
		idle:  idle,
	}
}

// Every registers action to run each interval, the first time one interval from now.
func (s *Scheduler) Every(name string, interval time.Duration, action Action) *Task {
	t := &Task{
		Name:     name,
		Interval: interval,
		action:   action,
		last:     s.clock.Now(),
	}
	s.tasks = append(s.tasks, t)
	return t
}

// Tick is one loop iteration. Each task is checked on its own; a task that fires
// is rescheduled from the time its action returns.
func (s *Scheduler) Tick(ctx context.Context) {
	for _, t := range s.tasks {
		now := s.clock.Now()
		if !t.Due(now) {
			continue
		}
		s.fire(ctx, t, now)
		t.last = s.clock.Now()
	}
}

func (s *Scheduler) fire(ctx context.Context, t *Task, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Task %v panicked [%v]", t.Name, r)
		}
	}()
	t.fired++
	t.action(ctx, now)
}

// Run loops until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.Tick(ctx)
		s.clock.Sleep(s.idle)
	}
}
