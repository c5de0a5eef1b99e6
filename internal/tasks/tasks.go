package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager handles the execution of scheduled tasks
type Manager struct {
	mu      sync.Mutex
	tasks   []Task
	log     logrus.FieldLogger
	started bool
}

// Task represents a scheduled task that needs to be executed
type Task interface {
	Name() string
	Start()
	Stop()
}

// NewManager creates a new task manager
func NewManager(log logrus.FieldLogger) *Manager {
	return &Manager{log: log}
}

// RegisterTask registers a task with the manager
func (m *Manager) RegisterTask(task Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	if m.started {
		task.Start()
	}
}

// StartScheduledTasks starts all registered tasks
func (m *Manager) StartScheduledTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	for _, task := range m.tasks {
		task.Start()
		m.log.WithField("task", task.Name()).Debug("Task started")
	}
	m.log.WithField("count", len(m.tasks)).Info("Started all scheduled tasks")
}

// StopAllTasks stops all running tasks
func (m *Manager) StopAllTasks() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		task.Stop()
	}
	m.started = false
	m.log.Info("Stopped all scheduled tasks")
}

// IntervalTask runs fn every interval until stopped.
type IntervalTask struct {
	name     string
	interval time.Duration
	fn       func(ctx context.Context)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewIntervalTask creates a task that calls fn once per interval.
func NewIntervalTask(name string, interval time.Duration, fn func(ctx context.Context)) *IntervalTask {
	return &IntervalTask{name: name, interval: interval, fn: fn}
}

func (t *IntervalTask) Name() string { return t.name }

// Start begins the periodic loop. Starting a running task does nothing.
func (t *IntervalTask) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.fn(ctx)
			case <-ctx.Done():
				return
			}
		}
	}(t.done)
}

// Stop terminates the loop and waits for a running call to return.
func (t *IntervalTask) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
