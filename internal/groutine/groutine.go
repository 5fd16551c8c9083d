// Package groutine runs named goroutines. Names are attached as pprof
// labels, so profiles and goroutine dumps show which task a goroutine runs,
// and as the "task" field of the group's log entries.
package groutine

import (
	"context"
	"errors"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type ctxKey string

const goroutineNameKey ctxKey = "goroutine_name"

func run(ctx context.Context, name string, fn func(ctx context.Context)) {
	pprof.Do(ctx, pprof.Labels("goroutine_name", name), func(ctx context.Context) {
		fn(context.WithValue(ctx, goroutineNameKey, name))
	})
}

// GetName retrieves the task name from the context.
func GetName(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v := ctx.Value(goroutineNameKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Group runs named tasks that share a lifetime. The first task to fail
// cancels the others; Wait returns that first error.
type Group struct {
	eg     *errgroup.Group
	ctx    context.Context
	logger *logrus.Logger
}

// NewGroup creates a Group whose context derives from parent.
func NewGroup(parent context.Context, logger *logrus.Logger) (*Group, context.Context) {
	if parent == nil {
		parent = context.Background()
	}
	if logger == nil {
		logger = logrus.New()
	}
	eg, ctx := errgroup.WithContext(parent)
	return &Group{eg: eg, ctx: ctx, logger: logger}, ctx
}

// Go starts a named task.
//
//	g.Go("reporter", func(ctx context.Context) error {
//	    // work
//	})
func (g *Group) Go(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() (err error) {
		run(g.ctx, name, func(ctx context.Context) {
			entry := g.logger.WithField("task", GetName(ctx))
			entry.Debug("Task started")
			err = fn(ctx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				entry.Debug("Task stopped")
			default:
				entry.WithError(err).Error("Task failed")
			}
		})
		return err
	})
}

// Wait blocks until every task has returned.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
