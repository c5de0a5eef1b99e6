package tasks

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntervalTask(t *testing.T) {
	var runs int64
	task := NewIntervalTask("count", 5*time.Millisecond, func(context.Context) {
		atomic.AddInt64(&runs, 1)
	})

	task.Start()
	task.Start()
	require.Eventually(t, func() bool { return atomic.LoadInt64(&runs) >= 2 }, time.Second, time.Millisecond)

	task.Stop()
	stopped := atomic.LoadInt64(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt64(&runs))

	// Stopping twice is harmless.
	task.Stop()
}

func TestManager(t *testing.T) {
	log, hook := test.NewNullLogger()
	m := NewManager(log)

	var runs int64
	m.RegisterTask(NewIntervalTask("a", 5*time.Millisecond, func(context.Context) { atomic.AddInt64(&runs, 1) }))
	m.StartScheduledTasks()

	late := int64(0)
	m.RegisterTask(NewIntervalTask("b", 5*time.Millisecond, func(context.Context) { atomic.AddInt64(&late, 1) }))

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&runs) > 0 && atomic.LoadInt64(&late) > 0
	}, time.Second, time.Millisecond)

	m.StopAllTasks()
	assert.Equal(t, "Stopped all scheduled tasks", hook.LastEntry().Message)
}
