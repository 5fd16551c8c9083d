package groutine_test

import (
	"context"
	"errors"
	"runtime/pprof"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/beacond/internal/groutine"
)

func TestGroup_NamesTask(t *testing.T) {
	g, _ := groutine.NewGroup(context.Background(), nil)

	var name, label string
	g.Go("worker-42", func(ctx context.Context) error {
		name = groutine.GetName(ctx)
		label, _ = pprof.Label(ctx, "goroutine_name")
		return nil
	})
	require.NoError(t, g.Wait())

	assert.Equal(t, "worker-42", name)
	assert.Equal(t, "worker-42", label, "name MUST be attached as a pprof label")
}

func TestGetName_Empty(t *testing.T) {
	assert.Equal(t, "", groutine.GetName(context.Background()))
	//nolint:staticcheck // nil context is handled on purpose
	assert.Equal(t, "", groutine.GetName(nil))
}

func TestGroup_FirstErrorCancelsOthers(t *testing.T) {
	g, ctx := groutine.NewGroup(context.Background(), nil)
	boom := errors.New("boom")

	g.Go("waiter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Go("failer", func(ctx context.Context) error {
		assert.Equal(t, "failer", groutine.GetName(ctx))
		return boom
	})

	err := g.Wait()
	assert.ErrorIs(t, err, boom, "Wait MUST return the first error")
	assert.Error(t, ctx.Err(), "group context MUST be cancelled")
}

func TestGroup_LogsTaskName(t *testing.T) {
	// GOAL: Verify task lifecycle entries carry the task name
	//
	// TEST SCENARIO: "scan-cycle" fails, "reporter" is cancelled → one error entry for scan-cycle, debug stop for reporter

	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	g, _ := groutine.NewGroup(context.Background(), logger)

	g.Go("reporter", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Go("scan-cycle", func(context.Context) error {
		return errors.New("radio gone")
	})
	require.Error(t, g.Wait())

	var failed, stopped []string
	for _, e := range hook.AllEntries() {
		task, _ := e.Data["task"].(string)
		assert.NotEmpty(t, task, "every group entry MUST name its task")
		switch e.Message {
		case "Task failed":
			failed = append(failed, task)
		case "Task stopped":
			stopped = append(stopped, task)
		}
	}
	assert.Equal(t, []string{"scan-cycle"}, failed)
	assert.Equal(t, []string{"reporter"}, stopped, "cancellation MUST NOT be logged as a failure")
}

func TestGroup_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := groutine.NewGroup(parent, nil)

	g.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	time.AfterFunc(10*time.Millisecond, cancel)
	require.NoError(t, g.Wait())
}
