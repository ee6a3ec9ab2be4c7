package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/sentinelai/compliance-console/internal/agent"
	"github.com/sentinelai/compliance-console/internal/audittrail"
	"github.com/sentinelai/compliance-console/internal/domain"
)

type fakeExecutor struct {
	result      *domain.AuditResult
	err         error
	lastReqID   string
	lastAccount string
}

func (f *fakeExecutor) Run(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error) {
	f.lastReqID = requirementID
	f.lastAccount = accountID
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRecorder struct {
	events []audittrail.RunEvent
}

func (f *fakeRecorder) Log(event audittrail.RunEvent) {
	f.events = append(f.events, event)
}

func newAuditService(exec *fakeExecutor, trail *fakeRecorder) *AuditService {
	// Redis-клиент nil: публикация сигналов best-effort и в тестах не нужна
	return NewAuditService(exec, nil, trail, "aws-account-001", zap.NewNop())
}

func TestRunAuditSuccess(t *testing.T) {
	exec := &fakeExecutor{result: &domain.AuditResult{
		Success:       true,
		RequirementID: "1.1.1",
		Output:        "all controls passed",
	}}
	trail := &fakeRecorder{}
	svc := newAuditService(exec, trail)

	res, err := svc.RunAudit(context.Background(), "1.1.1", "aws-account-002")
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if !res.Success || res.Message != "Audit completed successfully for 1.1.1" {
		t.Fatalf("result: %+v", res)
	}
	if res.ExitCode != nil {
		t.Fatalf("success must carry no exit_code")
	}
	if exec.lastAccount != "aws-account-002" {
		t.Fatalf("account = %q", exec.lastAccount)
	}

	if len(trail.events) != 1 || trail.events[0].Outcome != audittrail.OutcomeSuccess {
		t.Fatalf("trail: %+v", trail.events)
	}
}

func TestRunAuditDefaultsAccount(t *testing.T) {
	exec := &fakeExecutor{result: &domain.AuditResult{Success: true, RequirementID: "3.4"}}
	svc := newAuditService(exec, &fakeRecorder{})

	if _, err := svc.RunAudit(context.Background(), "3.4", ""); err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if exec.lastAccount != "aws-account-001" {
		t.Fatalf("empty account must fall back to the default, got %q", exec.lastAccount)
	}
}

func TestRunAuditProcessFailure(t *testing.T) {
	exec := &fakeExecutor{err: &agent.ProcessError{
		ExitCode: 2,
		Stdout:   "checked 12 controls",
		Stderr:   "AccessDenied: sts:AssumeRole",
		Cause:    errors.New("exit status 2"),
	}}
	trail := &fakeRecorder{}
	svc := newAuditService(exec, trail)

	res, err := svc.RunAudit(context.Background(), "8.2.1", "")
	if err != nil {
		t.Fatalf("process failure must map to a result, got error %v", err)
	}
	if res.Success {
		t.Fatalf("success = true on failure")
	}
	if res.Message != "Audit failed for 8.2.1" {
		t.Fatalf("message = %q", res.Message)
	}
	if res.Output != "checked 12 controls" || res.ErrorOutput != "AccessDenied: sts:AssumeRole" {
		t.Fatalf("captured output lost: %+v", res)
	}
	if res.ExitCode == nil || *res.ExitCode != 2 {
		t.Fatalf("exit_code = %v, want 2", res.ExitCode)
	}

	if len(trail.events) != 1 || trail.events[0].Outcome != audittrail.OutcomeFailed || trail.events[0].ExitCode != 2 {
		t.Fatalf("trail: %+v", trail.events)
	}
}

func TestRunAuditTimeoutFallbackMessage(t *testing.T) {
	exec := &fakeExecutor{err: &agent.ProcessError{ExitCode: 1, TimedOut: true}}
	trail := &fakeRecorder{}
	svc := newAuditService(exec, trail)

	res, err := svc.RunAudit(context.Background(), "10.5", "")
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if res.ErrorOutput != "audit agent timed out" {
		t.Fatalf("error_output = %q", res.ErrorOutput)
	}
	if trail.events[0].Outcome != audittrail.OutcomeTimeout {
		t.Fatalf("trail outcome = %q", trail.events[0].Outcome)
	}
}

func TestRunAuditOverflowFallbackMessage(t *testing.T) {
	exec := &fakeExecutor{err: &agent.ProcessError{ExitCode: 1, Truncated: true}}
	svc := newAuditService(exec, &fakeRecorder{})

	res, err := svc.RunAudit(context.Background(), "12.10", "")
	if err != nil {
		t.Fatalf("RunAudit: %v", err)
	}
	if res.ErrorOutput != "audit agent output exceeded buffer limit" {
		t.Fatalf("error_output = %q", res.ErrorOutput)
	}
}

func TestRunAuditValidationPropagates(t *testing.T) {
	exec := &fakeExecutor{err: agent.ErrMissingRequirement}
	trail := &fakeRecorder{}
	svc := newAuditService(exec, trail)

	res, err := svc.RunAudit(context.Background(), "", "")
	if !errors.Is(err, agent.ErrMissingRequirement) {
		t.Fatalf("want ErrMissingRequirement, got %v", err)
	}
	if res != nil {
		t.Fatalf("validation failure must not produce a result")
	}
	if trail.events[0].Outcome != audittrail.OutcomeRejected {
		t.Fatalf("trail outcome = %q", trail.events[0].Outcome)
	}
}

func TestRunAuditUnavailableMapsToFailure(t *testing.T) {
	exec := &fakeExecutor{err: agent.ErrAuditUnavailable}
	trail := &fakeRecorder{}
	svc := newAuditService(exec, trail)

	res, err := svc.RunAudit(context.Background(), "1.1.1", "")
	if err != nil {
		t.Fatalf("rejection must map to a result, got error %v", err)
	}
	if res.Success || res.ExitCode != nil {
		t.Fatalf("rejection result: %+v", res)
	}
	if res.ErrorOutput == "" {
		t.Fatalf("rejection must explain itself in error_output")
	}
	if trail.events[0].Outcome != audittrail.OutcomeRejected {
		t.Fatalf("trail outcome = %q", trail.events[0].Outcome)
	}
}
