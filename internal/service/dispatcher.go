// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-webhook-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-webhook-service/pkg/concurrent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/linuxfoundation/lfx-v2-webhook-service/internal/service"

// Dispatcher defaults
const (
	DefaultDispatchWorkers       = 4
	DefaultDispatchQueueSize     = 256
	DefaultDispatchActionTimeout = 15 * time.Second
	// actionsPerTask bounds how many actions of one task run at once.
	actionsPerTask = 4
	// errorBuffer is the capacity of the Errors channel.
	errorBuffer = 64
)

// Dispatch results recorded on the webhook.dispatch.actions counter
const (
	dispatchResultSuccess  = "success"
	dispatchResultFailure  = "failure"
	dispatchResultRejected = "rejected"
)

// Action is one downstream side effect. Each action is independently fallible.
type Action struct {
	Name string
	Run  func(ctx context.Context) error
	// Timeout overrides the dispatcher's per-action timeout when set.
	Timeout time.Duration
}

// Task is the set of actions fired for one applied transition.
type Task struct {
	Name    string
	Actions []Action

	// ctx carries the submitting request's log attributes and trace.
	ctx context.Context
}

// DispatchError reports a failed action on the Errors channel.
type DispatchError struct {
	Task   string
	Action string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s/%s: %v", e.Task, e.Action, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// DispatcherConfig configures a Dispatcher
type DispatcherConfig struct {
	Workers       int
	QueueSize     int
	ActionTimeout time.Duration
}

// Dispatcher runs side effects off the request path through a bounded queue.
// Producers never block: a full queue rejects the task.
type Dispatcher struct {
	queue         *concurrent.Queue[Task]
	pool          *concurrent.WorkerPool
	workers       int
	actionTimeout time.Duration
	actions       metric.Int64Counter
	errs          chan error

	startOnce sync.Once
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Call Start before submitting tasks.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultDispatchWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultDispatchQueueSize
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = DefaultDispatchActionTimeout
	}

	counter, err := otel.Meter(meterName).Int64Counter(
		"webhook.dispatch.actions",
		metric.WithDescription("Side-effect actions dispatched for applied webhook transitions"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch counter: %w", err)
	}

	queue := concurrent.NewQueue[Task](cfg.QueueSize)
	_, err = otel.Meter(meterName).Int64ObservableGauge(
		"webhook.dispatch.queue.depth",
		metric.WithDescription("Side-effect tasks waiting for a dispatcher worker"),
		metric.WithUnit("{task}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(queue.Len()), metric.WithAttributes(attribute.Int("capacity", queue.Cap())))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatch queue gauge: %w", err)
	}

	return &Dispatcher{
		queue:         queue,
		pool:          concurrent.NewWorkerPool(actionsPerTask),
		workers:       cfg.Workers,
		actionTimeout: cfg.ActionTimeout,
		actions:       counter,
		errs:          make(chan error, errorBuffer),
	}, nil
}

// Start launches the workers. It is safe to call more than once.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.work()
		}
	})
}

// Submit hands a task to the workers without waiting for it. The task keeps
// ctx's values but not its cancellation.
func (d *Dispatcher) Submit(ctx context.Context, task Task) error {
	if len(task.Actions) == 0 {
		return nil
	}
	task.ctx = context.WithoutCancel(ctx)

	if err := d.queue.TryPush(task); err != nil {
		for _, action := range task.Actions {
			d.record(ctx, action.Name, dispatchResultRejected)
		}
		slog.ErrorContext(ctx, "side-effect task rejected",
			logging.ErrKey, err,
			logging.PriorityCritical(),
			"task", task.Name,
			"queue_capacity", d.queue.Cap(),
		)
		if errors.Is(err, concurrent.ErrQueueFull) {
			return domain.ErrDispatchQueueFull
		}
		return err
	}
	return nil
}

// Errors returns failed actions. Errors are dropped when nobody reads them.
func (d *Dispatcher) Errors() <-chan error {
	return d.errs
}

// Pending returns the number of queued tasks
func (d *Dispatcher) Pending() int {
	return d.queue.Len()
}

// IsReady reports whether the dispatcher accepts tasks. A saturated queue
// stays ready; saturation shows on the webhook.dispatch.queue.depth gauge.
func (d *Dispatcher) IsReady() bool {
	return !d.queue.Closed()
}

// RunNow executes task's actions on the calling goroutine with the same
// per-action timeouts, isolation and accounting as queued tasks. It is meant
// for follow-ups of an action that is already running on a worker.
func (d *Dispatcher) RunNow(ctx context.Context, task Task) {
	if len(task.Actions) == 0 {
		return
	}
	task.ctx = context.WithoutCancel(ctx)
	d.run(task)
}

// Shutdown stops accepting tasks and waits for queued tasks to finish or
// for ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.queue.Close()
	// workers that were never started would leave the queue undrained
	d.Start()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %d tasks not drained: %w", d.queue.Len(), ctx.Err())
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for task := range d.queue.Items() {
		d.run(task)
	}
}

// run executes every action of task; a failed action never stops the others.
func (d *Dispatcher) run(task Task) {
	ctx := task.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	functions := make([]func() error, 0, len(task.Actions))
	for _, action := range task.Actions {
		functions = append(functions, func() error {
			return d.runAction(ctx, task.Name, action)
		})
	}
	d.pool.RunAll(ctx, functions...)
}

func (d *Dispatcher) runAction(ctx context.Context, taskName string, action Action) (err error) {
	timeout := action.Timeout
	if timeout <= 0 {
		timeout = d.actionTimeout
	}
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("action panicked: %v", r)
		}
		if err == nil {
			d.record(ctx, action.Name, dispatchResultSuccess)
			slog.DebugContext(ctx, "side-effect action completed", "task", taskName, "action", action.Name)
			return
		}
		d.record(ctx, action.Name, dispatchResultFailure)
		slog.ErrorContext(ctx, "side-effect action failed",
			logging.ErrKey, err,
			"task", taskName,
			"action", action.Name,
		)
		select {
		case d.errs <- &DispatchError{Task: taskName, Action: action.Name, Err: err}:
		default:
		}
	}()

	return action.Run(actionCtx)
}

func (d *Dispatcher) record(ctx context.Context, action, result string) {
	d.actions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("result", result),
	))
}
