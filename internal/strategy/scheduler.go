package strategy

import (
	"context"
	"sync"
	"time"

	"carrytrader/pkg/exception"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Poster hands work to the dispatcher loop without blocking.
type Poster interface {
	Post(fn func()) error
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(fn func()) error

func (f PosterFunc) Post(fn func()) error {
	return f(fn)
}

// Task is a periodic strategy callback. Run executes on the dispatcher loop.
type Task struct {
	Name  string
	Every time.Duration
	Run   func(now time.Time)
}

// SchedulerState idle, running, paused, stopped
type SchedulerState uint8

const (
	SchedulerIdle SchedulerState = iota
	SchedulerRunning
	SchedulerPaused
	SchedulerStopped
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerIdle:
		return "IDLE"
	case SchedulerRunning:
		return "RUNNING"
	case SchedulerPaused:
		return "PAUSED"
	case SchedulerStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Scheduler owns the timers of one strategy. Timers only post their task
// into the loop; a task queued before a pause is skipped when it runs.
type Scheduler struct {
	owner string

	mu     sync.Mutex
	state  SchedulerState
	tasks  []Task
	poster Poster
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates an idle scheduler for owner.
func NewScheduler(owner string) *Scheduler {
	return &Scheduler{owner: owner}
}

func (s *Scheduler) attach(p Poster) {
	s.mu.Lock()
	s.poster = p
	s.mu.Unlock()
}

// Add registers a task. A running scheduler starts its timer immediately.
func (s *Scheduler) Add(task Task) error {
	if task.Every <= 0 || task.Run == nil {
		return errors.Wrapf(exception.ErrInvalidArgument, "task %s", task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SchedulerStopped {
		return exception.ErrSchedulerStopped
	}
	if s.state == SchedulerRunning && s.poster == nil {
		return errors.Wrapf(exception.ErrNilInstance, "scheduler %s has no poster", s.owner)
	}
	s.tasks = append(s.tasks, task)
	if s.state == SchedulerRunning {
		s.spawn(s.ctx, task)
	}
	return nil
}

// Resume starts or restarts every task timer.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case SchedulerStopped:
		return exception.ErrSchedulerStopped
	case SchedulerRunning:
		return nil
	}
	if s.poster == nil && len(s.tasks) != 0 {
		return errors.Wrapf(exception.ErrNilInstance, "scheduler %s has no poster", s.owner)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.state = SchedulerRunning
	for _, t := range s.tasks {
		s.spawn(s.ctx, t)
	}
	return nil
}

// Pause stops every timer and waits for them to exit.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if s.state != SchedulerRunning {
		s.mu.Unlock()
		return
	}
	s.state = SchedulerPaused
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

// Stop pauses the scheduler for good.
func (s *Scheduler) Stop() {
	s.Pause()
	s.mu.Lock()
	s.state = SchedulerStopped
	s.tasks = nil
	s.mu.Unlock()
}

// State returns the current scheduler state.
func (s *Scheduler) State() SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Tasks returns the names of the registered tasks.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.tasks))
	for _, t := range s.tasks {
		names = append(names, t.Name)
	}
	return names
}

func (s *Scheduler) running() bool {
	return s.State() == SchedulerRunning
}

func (s *Scheduler) spawn(ctx context.Context, task Task) {
	poster := s.poster
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(task.Every)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				err := poster.Post(func() {
					if !s.running() {
						return
					}
					s.run(task, now)
				})
				if err != nil {
					logs.Warnf("post task %s/%s, err: %+v", s.owner, task.Name, err)
				}
			}
		}
	}()
}

func (s *Scheduler) run(task Task, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("task %s/%s panic: %v", s.owner, task.Name, r)
		}
	}()
	task.Run(now)
}
