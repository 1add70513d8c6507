package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-upgrades/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

// JobIDBindingAudit is the queue identity of the binding degradation sweep.
const JobIDBindingAudit = core.JobIDBindingAudit

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage maps an upgrade runtime message to go-job.
func ToExecutionMessage(msg *core.JobExecutionMessage) *job.ExecutionMessage {
	if msg == nil {
		return nil
	}
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    job.DeduplicationPolicy(strings.TrimSpace(msg.DedupPolicy)),
	}
}

// FromExecutionMessage maps a go-job message into the upgrade contract.
func FromExecutionMessage(msg *job.ExecutionMessage) *core.JobExecutionMessage {
	if msg == nil {
		return nil
	}
	return &core.JobExecutionMessage{
		JobID:          strings.TrimSpace(msg.JobID),
		Parameters:     copyAnyMap(msg.Parameters),
		IdempotencyKey: strings.TrimSpace(msg.IdempotencyKey),
		DedupPolicy:    strings.TrimSpace(string(msg.DedupPolicy)),
	}
}

// ToNackOptions maps upgrade nack options to go-job.
func ToNackOptions(opts core.JobNackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

// FromNackOptions maps go-job nack options to the upgrade contract.
func FromNackOptions(opts queue.NackOptions) core.JobNackOptions {
	return core.JobNackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

func (a *EnqueuerAdapter) Enqueue(ctx context.Context, msg *core.JobExecutionMessage) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	if msg == nil {
		return fmt.Errorf("gojob: execution message is required")
	}
	return a.enqueuer.Enqueue(ctx, ToExecutionMessage(msg))
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

func (d *DeliveryAdapter) Message() *core.JobExecutionMessage {
	if d == nil || d.delivery == nil {
		return nil
	}
	return FromExecutionMessage(d.delivery.Message())
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.JobNackOptions) error {
	return d.NackForAttempt(ctx, opts, 0)
}

func (d *DeliveryAdapter) NackForAttempt(ctx context.Context, opts core.JobNackOptions, attempt int) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{dequeuer: dequeuer, policy: policy}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.JobDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	return NewDeliveryAdapter(delivery, a.policy), nil
}

type WorkerHookAdapter struct {
	hook core.JobWorkerHook
}

func NewWorkerHookAdapter(hook core.JobWorkerHook) *WorkerHookAdapter {
	return &WorkerHookAdapter{hook: hook}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnStart(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnSuccess(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnFailure(ctx, mapWorkerEvent(event))
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	if a == nil || a.hook == nil {
		return
	}
	a.hook.OnRetry(ctx, mapWorkerEvent(event))
}

func mapWorkerEvent(event worker.Event) core.JobWorkerEvent {
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	return core.JobWorkerEvent{
		Message:   FromExecutionMessage(message),
		Attempt:   event.Attempt,
		Delay:     event.Delay,
		Err:       event.Err,
		StartedAt: event.StartedAt,
		Duration:  event.Duration,
	}
}

// AuditService is the slice of the upgrade service the runner needs.
type AuditService interface {
	BindingAudit(ctx context.Context) (core.AuditReport, error)
}

// BindingAuditRunner drains queued audit sweeps. Hosts own the polling
// loop; each ProcessNext call handles exactly one delivery.
type BindingAuditRunner struct {
	service  AuditService
	dequeuer core.JobDequeuer
	hook     core.JobWorkerHook
	logger   glog.Logger
}

type RunnerOption func(*BindingAuditRunner)

func WithRunnerHook(hook core.JobWorkerHook) RunnerOption {
	return func(r *BindingAuditRunner) {
		r.hook = hook
	}
}

func WithRunnerLogger(logger glog.Logger) RunnerOption {
	return func(r *BindingAuditRunner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewBindingAuditRunner(service AuditService, dequeuer core.JobDequeuer, opts ...RunnerOption) (*BindingAuditRunner, error) {
	if service == nil {
		return nil, fmt.Errorf("gojob: audit service is required")
	}
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	runner := &BindingAuditRunner{
		service:  service,
		dequeuer: dequeuer,
		logger:   glog.Ensure(nil),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(runner)
	}
	return runner, nil
}

// ProcessNext dequeues one message, runs the sweep for audit jobs, and
// acks or nacks the delivery. Deliveries for unknown job IDs are dead
// lettered rather than retried.
func (r *BindingAuditRunner) ProcessNext(ctx context.Context) (core.AuditReport, error) {
	if r == nil || r.service == nil || r.dequeuer == nil {
		return core.AuditReport{}, fmt.Errorf("gojob: binding audit runner is not configured")
	}

	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		return core.AuditReport{}, fmt.Errorf("gojob: dequeue audit job: %w", err)
	}
	if delivery == nil {
		return core.AuditReport{}, fmt.Errorf("gojob: dequeuer returned no delivery")
	}

	message := delivery.Message()
	if message == nil || message.JobID != JobIDBindingAudit {
		jobID := ""
		if message != nil {
			jobID = message.JobID
		}
		if nackErr := delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "unroutable job id",
		}); nackErr != nil {
			return core.AuditReport{}, fmt.Errorf("gojob: dead letter unroutable job %q: %w", jobID, nackErr)
		}
		return core.AuditReport{}, fmt.Errorf("gojob: unroutable job id %q", jobID)
	}

	startedAt := time.Now().UTC()
	r.emitStart(ctx, message, startedAt)

	report, err := r.service.BindingAudit(ctx)
	duration := time.Since(startedAt)
	if err != nil {
		r.logger.Error("binding audit sweep failed", "job_id", message.JobID, "error", err)
		r.emitFailure(ctx, message, startedAt, duration, err)
		if nackErr := delivery.Nack(ctx, core.JobNackOptions{
			Requeue: true,
			Reason:  err.Error(),
		}); nackErr != nil {
			return core.AuditReport{}, fmt.Errorf("gojob: nack failed audit job: %w", nackErr)
		}
		return core.AuditReport{}, fmt.Errorf("gojob: binding audit failed: %w", err)
	}

	if ackErr := delivery.Ack(ctx); ackErr != nil {
		return core.AuditReport{}, fmt.Errorf("gojob: ack audit job: %w", ackErr)
	}
	r.logger.Info("binding audit sweep completed",
		"job_id", message.JobID,
		"checked", report.Checked,
		"degraded", report.Degraded,
		"unreachable", report.Unreachable,
	)
	r.emitSuccess(ctx, message, startedAt, duration)
	return report, nil
}

func (r *BindingAuditRunner) emitStart(ctx context.Context, message *core.JobExecutionMessage, startedAt time.Time) {
	if r.hook == nil {
		return
	}
	r.hook.OnStart(ctx, core.JobWorkerEvent{
		Message:   message,
		Attempt:   1,
		StartedAt: startedAt,
	})
}

func (r *BindingAuditRunner) emitSuccess(ctx context.Context, message *core.JobExecutionMessage, startedAt time.Time, duration time.Duration) {
	if r.hook == nil {
		return
	}
	r.hook.OnSuccess(ctx, core.JobWorkerEvent{
		Message:   message,
		Attempt:   1,
		StartedAt: startedAt,
		Duration:  duration,
	})
}

func (r *BindingAuditRunner) emitFailure(ctx context.Context, message *core.JobExecutionMessage, startedAt time.Time, duration time.Duration, err error) {
	if r.hook == nil {
		return
	}
	r.hook.OnFailure(ctx, core.JobWorkerEvent{
		Message:   message,
		Attempt:   1,
		Err:       err,
		StartedAt: startedAt,
		Duration:  duration,
	})
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var (
	_ core.JobEnqueuer = (*EnqueuerAdapter)(nil)
	_ core.JobDelivery = (*DeliveryAdapter)(nil)
	_ core.JobDequeuer = (*DequeuerAdapter)(nil)
	_ worker.Hook      = (*WorkerHookAdapter)(nil)
)
