package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// BindingAuditor re-checks pinned versions against their providers. The
// registry itself never re-validates a pin after set time, so the sweep is
// the operational answer to silent upstream degradation: it observes and
// reports, it never mutates bindings.
type BindingAuditor struct {
	registry  *Registry
	batchSize int
	logger    Logger
	nowFn     func() time.Time
}

func NewBindingAuditor(registry *Registry, batchSize int, logger Logger) *BindingAuditor {
	if batchSize < 0 {
		batchSize = 0
	}
	return &BindingAuditor{
		registry:  registry,
		batchSize: batchSize,
		logger:    glog.Ensure(logger),
		nowFn:     time.Now,
	}
}

// Run walks a snapshot of the registry and probes each binding upstream.
// A zero batch size checks everything in one pass.
func (a *BindingAuditor) Run(ctx context.Context) (AuditReport, error) {
	if a == nil || a.registry == nil {
		return AuditReport{}, goerrors.New("binding auditor is not configured", goerrors.CategoryInternal).
			WithTextCode(UpgradesErrorInternal)
	}

	report := AuditReport{StartedAt: a.now()}
	snapshot := a.registry.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	if a.batchSize > 0 && len(names) > a.batchSize {
		names = names[:a.batchSize]
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return report, goerrors.Wrap(err, goerrors.CategoryOperation, "binding audit interrupted").
				WithTextCode(UpgradesErrorOperationFailed)
		}
		binding := snapshot[name]
		if binding.Absent() {
			continue
		}
		report.Checked++
		finding := a.checkBinding(ctx, name, binding)
		switch finding.Health {
		case BindingHealthy:
			report.Healthy++
		case BindingDegraded:
			report.Degraded++
			report.Findings = append(report.Findings, finding)
		case BindingUnreachable:
			report.Unreachable++
			report.Findings = append(report.Findings, finding)
		}
	}

	report.FinishedAt = a.now()
	return report, nil
}

func (a *BindingAuditor) checkBinding(ctx context.Context, name string, binding ProviderBinding) AuditFinding {
	finding := AuditFinding{
		Name:           name,
		PackageAddress: binding.Package.Address(),
		Version:        binding.Version,
		Health:         BindingHealthy,
	}

	known, err := binding.Package.HasVersion(ctx, binding.Version)
	if err != nil {
		finding.Health = BindingUnreachable
		finding.Detail = fmt.Sprintf("version check failed: %v", err)
		return finding
	}
	if !known {
		finding.Health = BindingDegraded
		finding.Detail = "provider no longer reports the pinned version"
		return finding
	}

	provider, ok, err := binding.Package.Version(ctx, binding.Version)
	if err != nil {
		finding.Health = BindingUnreachable
		finding.Detail = fmt.Sprintf("provider lookup failed: %v", err)
		return finding
	}
	if !ok || provider == nil {
		finding.Health = BindingDegraded
		finding.Detail = "provider reports the version but returns no handle"
		return finding
	}
	return finding
}

func (a *BindingAuditor) now() time.Time {
	if a == nil || a.nowFn == nil {
		return time.Now().UTC()
	}
	return a.nowFn().UTC()
}

// BindingAudit runs the degradation sweep inline and reports what it found.
func (s *Service) BindingAudit(ctx context.Context) (report AuditReport, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "binding_audit", err, fields)
	}()

	if s == nil || s.auditor == nil {
		err = goerrors.New("binding auditor is not configured", goerrors.CategoryInternal).
			WithTextCode(UpgradesErrorInternal)
		return AuditReport{}, err
	}
	report, err = s.auditor.Run(ctx)
	if err != nil {
		err = s.mapError(err)
		return AuditReport{}, err
	}
	fields["checked"] = report.Checked
	fields["degraded"] = report.Degraded
	fields["unreachable"] = report.Unreachable

	for _, finding := range report.Findings {
		s.logWarn(ctx, "binding audit finding", map[string]any{
			"package": finding.Name,
			"version": finding.Version,
			"health":  string(finding.Health),
			"detail":  finding.Detail,
		})
	}
	if report.Degraded > 0 {
		s.recordCounter(ctx, "upgrades.audit.degraded.total", int64(report.Degraded), nil)
	}
	if report.Unreachable > 0 {
		s.recordCounter(ctx, "upgrades.audit.unreachable.total", int64(report.Unreachable), nil)
	}
	return report, nil
}

// ScheduleBindingAudit enqueues the sweep for a queue worker to execute.
func (s *Service) ScheduleBindingAudit(ctx context.Context) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "schedule_binding_audit", err, fields)
	}()

	if s == nil || s.jobEnqueuer == nil {
		err = goerrors.New("job enqueuer is not configured", goerrors.CategoryOperation).
			WithTextCode(UpgradesErrorOperationFailed)
		return err
	}
	err = s.jobEnqueuer.Enqueue(ctx, &JobExecutionMessage{
		JobID: JobIDBindingAudit,
		Parameters: map[string]any{
			"requested_at": s.now().Format(time.RFC3339),
		},
	})
	if err != nil {
		err = s.mapError(goerrors.Wrap(err, goerrors.CategoryOperation, "enqueueing binding audit failed").
			WithTextCode(UpgradesErrorOperationFailed))
		return err
	}
	return nil
}
