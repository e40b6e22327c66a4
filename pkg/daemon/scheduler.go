package daemon

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	preCheckMaxTimes = 3
	// idleWait is how long the loop sleeps when nothing is scheduled.
	idleWait = time.Hour * 10000
)

var preCheckInterval = time.Second * 10

type ErrorFunc func(err error)

// TaskFunc represents a runnable task.
type TaskFunc func() error

// Scheduler runs Task at the times given by a cron expression.
type Scheduler struct {
	OnError  ErrorFunc // called on task or precheck error
	Task     TaskFunc  // task callback
	PreCheck TaskFunc  // condition check before each run, optional

	parser cron.Parser

	expr     string
	schedule cron.Schedule
	nextRun  time.Time

	mu      sync.Mutex
	running bool

	controlCh chan controlMsg
	stopCh    chan struct{}
}

type controlKind int

const (
	ctrlRecalculate controlKind = iota // schedule replaced or cleared
	ctrlSkip                           // next run skipped
)

type controlMsg struct {
	kind controlKind
}

func NewScheduler(task, preCheck TaskFunc, onError ErrorFunc) *Scheduler {
	if task == nil {
		panic("task function cannot be nil")
	}

	return &Scheduler{
		OnError:   onError,
		Task:      task,
		PreCheck:  preCheck,
		parser:    cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		controlCh: make(chan controlMsg, 4),
		stopCh:    make(chan struct{}),
	}
}

func (s *Scheduler) Stop() {
	select {
	case <-s.stopCh: // already closed
	default:
		close(s.stopCh)
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	go s.runScheduled()
}

// Schedule replaces the cron expression. An empty expression disables
// the scheduler without stopping it.
func (s *Scheduler) Schedule(cronExpr string) error {
	var sh cron.Schedule
	if cronExpr != "" {
		var err error
		sh, err = s.parser.Parse(cronExpr)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	if cronExpr == s.expr && (s.schedule == nil) == (sh == nil) {
		s.mu.Unlock()
		return nil
	}
	s.expr = cronExpr
	s.schedule = sh
	s.nextRun = time.Time{}
	if sh != nil {
		s.nextRun = sh.Next(time.Now())
	}
	running := s.running
	s.mu.Unlock()

	logrus.WithField("cron", cronExpr).Debug("schedule updated")

	if running {
		s.trySendControl(ctrlRecalculate)
	}
	return nil
}

// Skip skips the next scheduled run.
func (s *Scheduler) Skip() error {
	s.mu.Lock()
	if s.schedule == nil || s.nextRun.IsZero() {
		s.mu.Unlock()
		return fmt.Errorf("no active schedule to skip")
	}
	s.nextRun = s.schedule.Next(s.nextRun)
	running := s.running
	s.mu.Unlock()

	if running {
		s.trySendControl(ctrlSkip)
	}
	return nil
}

func (s *Scheduler) Status() (nextRun time.Time, running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextRun = s.nextRun
	running = s.running
	return
}

func (s *Scheduler) runScheduled() {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		logrus.Debug("scheduler stopped")
	}()

	logrus.Debug("scheduler started")

	for {
		attempts := 0

		schedule, nextRun := s.snapshot()
		wait := idleWait
		if schedule != nil && !nextRun.IsZero() {
			wait = time.Until(nextRun)
			if wait < 0 {
				wait = 0
			}
		}
		timer := time.NewTimer(wait)

	loop:
		for {
			select {
			case <-timer.C:
				if schedule == nil || nextRun.IsZero() {
					break loop
				}

				if s.PreCheck != nil {
					if err := s.PreCheck(); err != nil {
						attempts++
						if attempts <= preCheckMaxTimes {
							logrus.Debugf("precheck failed (%d/%d): %v; retrying in %s", attempts, preCheckMaxTimes, err, preCheckInterval)
							timer.Reset(preCheckInterval)
							continue
						}

						s.sendError(fmt.Errorf("precheck failed: %w", err))
						s.advanceNextRun()
						break loop
					}
				}

				logrus.Debugf("running scheduled task at %s", nextRun.Format(time.DateTime))
				go func() {
					if err := s.Task(); err != nil {
						s.sendError(fmt.Errorf("task failed: %w", err))
					}
				}()
				s.advanceNextRun()
				break loop
			case <-s.stopCh:
				timer.Stop()
				return
			case msg := <-s.controlCh:
				logrus.WithField("kind", msg.kind).Debug("received control msg")
				timer.Stop()
				break loop
			}
		}
	}
}

func (s *Scheduler) snapshot() (cron.Schedule, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule, s.nextRun
}

func (s *Scheduler) advanceNextRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schedule == nil {
		return
	}
	// Catch up past runs missed while suspended.
	next := s.schedule.Next(s.nextRun)
	if now := time.Now(); next.Before(now) {
		next = s.schedule.Next(now)
	}
	s.nextRun = next
}

func (s *Scheduler) sendError(err error) {
	if s.OnError == nil {
		return
	}

	go s.OnError(err)
}

func (s *Scheduler) trySendControl(kind controlKind) {
	select {
	case s.controlCh <- controlMsg{kind: kind}:
	default:
	}
}
