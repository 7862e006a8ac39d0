// SPDX-License-Identifier: GPL-2.0-or-later

// Package workpool runs a fixed number of independent tasks on a pool of
// workers that pull the next task index from a shared counter.
package workpool

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Task runs task i. It is owned by one worker and never called concurrently
// with itself.
type Task func(i int) error

type Options struct {
	// Workers is the pool size, GOMAXPROCS if zero or less.
	Workers int
	// Order maps the n-th handed out index to the task to run. Nil keeps
	// the natural order. It has to be a permutation of [0,n).
	Order []int
	// Progress is called with the number of finished tasks, Interval apart
	// and once at the end.
	Progress func(done, total int)
	Interval time.Duration
}

// workers returns the effective pool size for n tasks.
func (o Options) workers(n int) int {
	w := o.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	return max(1, min(w, n))
}

// Run executes tasks 0..n-1. newWorker is called once per worker to build
// that worker's task function, so per worker scratch state needs no
// locking. Workers check for a stop between tasks only; the first error
// stops handing out new tasks and is returned once all workers are idle.
func Run(ctx context.Context, n int, opts Options, newWorker func(id int) Task) error {
	if n == 0 {
		return nil
	}
	if opts.Order != nil && len(opts.Order) != n {
		return errors.Errorf("workpool: order has %d entries for %d tasks", len(opts.Order), n)
	}
	var (
		next atomic.Int64
		done atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	for id := 0; id < opts.workers(n); id++ {
		task := newWorker(id)
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				k := int(next.Add(1) - 1)
				if k >= n {
					return nil
				}
				i := k
				if opts.Order != nil {
					i = opts.Order[k]
				}
				if err := task(i); err != nil {
					return err
				}
				done.Add(1)
			}
		})
	}

	stop := make(chan struct{})
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		if opts.Progress == nil {
			return
		}
		var tick <-chan time.Time
		if opts.Interval > 0 {
			t := time.NewTicker(opts.Interval)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-tick:
				opts.Progress(int(done.Load()), n)
			case <-stop:
				opts.Progress(int(done.Load()), n)
				return
			}
		}
	}()

	err := g.Wait()
	close(stop)
	<-reported
	if err != nil {
		// a cancelled parent context wins over the errgroup's own cancel
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		return err
	}
	return nil
}
