package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentinelai/compliance-console/internal/domain"
	"github.com/sentinelai/compliance-console/internal/infra"
)

// fakeExecutor отдает заранее заготовленные исходы и считает вызовы.
type fakeExecutor struct {
	calls  int
	result *domain.AuditResult
	err    error
}

func (f *fakeExecutor) Run(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func reliableCfg() infra.AgentConfig {
	return infra.AgentConfig{
		RateLimit:     1000,
		RateBurst:     1000,
		CBMaxRequests: 1,
		CBInterval:    0,
		CBTimeout:     time.Minute,
	}
}

func TestReliableRunnerPassesResultThrough(t *testing.T) {
	fake := &fakeExecutor{result: &domain.AuditResult{Success: true, RequirementID: "1.1.1", Output: "ok"}}
	rr := NewReliableRunner(fake, reliableCfg(), NewMetrics(prometheus.NewRegistry()))

	res, err := rr.Run(context.Background(), "1.1.1", "aws-account-001")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Success || res.Output != "ok" {
		t.Fatalf("result mangled: %+v", res)
	}
	if fake.calls != 1 {
		t.Fatalf("calls = %d, want 1", fake.calls)
	}
}

func TestReliableRunnerOpensAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeExecutor{err: &ProcessError{ExitCode: 1, Cause: errors.New("exit status 1")}}
	rr := NewReliableRunner(fake, reliableCfg(), NewMetrics(prometheus.NewRegistry()))

	// Первые шесть сбоев доходят до исполнителя и возвращаются как есть
	for i := 0; i < 6; i++ {
		_, err := rr.Run(context.Background(), "1.1.1", "")
		var perr *ProcessError
		if !errors.As(err, &perr) {
			t.Fatalf("run %d: want *ProcessError, got %v", i, err)
		}
	}

	// Седьмой отклоняется до спавна
	_, err := rr.Run(context.Background(), "1.1.1", "")
	if !errors.Is(err, ErrAuditUnavailable) {
		t.Fatalf("want ErrAuditUnavailable, got %v", err)
	}
	if fake.calls != 6 {
		t.Fatalf("executor must not be called with the breaker open, calls = %d", fake.calls)
	}
}

func TestReliableRunnerValidationDoesNotTrip(t *testing.T) {
	fake := &fakeExecutor{err: ErrMissingRequirement}
	rr := NewReliableRunner(fake, reliableCfg(), NewMetrics(prometheus.NewRegistry()))

	for i := 0; i < 20; i++ {
		if _, err := rr.Run(context.Background(), "", ""); !errors.Is(err, ErrMissingRequirement) {
			t.Fatalf("run %d: want ErrMissingRequirement, got %v", i, err)
		}
	}

	// Предохранитель остался закрытым: настоящий запуск проходит
	fake.err = nil
	fake.result = &domain.AuditResult{Success: true}
	if _, err := rr.Run(context.Background(), "1.1.1", ""); err != nil {
		t.Fatalf("breaker must stay closed on validation errors: %v", err)
	}
}

func TestClassifyOutcome(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "success"},
		{"timeout", &ProcessError{TimedOut: true}, "timeout"},
		{"exit code", &ProcessError{ExitCode: 2}, "failed"},
		{"validation", ErrMissingRequirement, "rejected"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyOutcome(tc.err); got != tc.want {
				t.Fatalf("classifyOutcome = %q, want %q", got, tc.want)
			}
		})
	}
}
