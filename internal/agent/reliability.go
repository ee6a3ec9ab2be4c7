package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sentinelai/compliance-console/internal/domain"
	"github.com/sentinelai/compliance-console/internal/infra"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// AuditExecutor — то, что умеет выполнить один аудит.
type AuditExecutor interface {
	Run(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error)
}

// ErrAuditUnavailable — запуск отклонен до спавна: предохранитель открыт.
var ErrAuditUnavailable = errors.New("agent: audit engine temporarily unavailable")

// ReliableRunner оборачивает Runner в rate limiter и circuit breaker.
// Ретраев нет намеренно: неудавшийся аудит отдаем как есть, не переигрываем.
// Дедупликации по ключу тоже нет — конкурентные запуски одного
// requirement/account свободно гоняются.
type ReliableRunner struct {
	next    AuditExecutor
	cb      *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	metrics *Metrics
}

func NewReliableRunner(next AuditExecutor, cfg infra.AgentConfig, metrics *Metrics) *ReliableRunner {
	// Настройка предохранителя
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "audit-agent",
		MaxRequests: cfg.CBMaxRequests,
		Interval:    cfg.CBInterval,
		Timeout:     cfg.CBTimeout, // Время, через которое CB попробует "закрыться"
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Если более 5 сбоев подряд — открываемся (перестаем спавнить процессы)
			return counts.ConsecutiveFailures > 5
		},
		// Отказ валидации — не сбой движка, предохранитель его не считает
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrMissingRequirement) ||
				errors.Is(err, ErrInvalidIdentifier)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				metrics.CircuitBreakerState.Set(1)
			} else {
				metrics.CircuitBreakerState.Set(0)
			}
		},
	})

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)

	return &ReliableRunner{
		next:    next,
		cb:      cb,
		limiter: limiter,
		metrics: metrics,
	}
}

func (w *ReliableRunner) Run(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error) {
	// 1. Rate Limiter: ждем слот, а не отказываем сразу —
	// эндпоинт и так синхронный на минуты
	if err := w.limiter.Wait(ctx); err != nil {
		w.metrics.ErrorsTotal.WithLabelValues("rate_limit").Inc()
		return nil, fmt.Errorf("agent: rate limit wait aborted: %w", err)
	}

	start := time.Now()

	// 2. Circuit Breaker
	cbResult, err := w.cb.Execute(func() (interface{}, error) {
		return w.next.Run(ctx, requirementID, accountID)
	})

	outcome := classifyOutcome(err)
	w.metrics.RunsTotal.WithLabelValues(outcome).Inc()
	w.metrics.RunDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			w.metrics.ErrorsTotal.WithLabelValues("breaker_open").Inc()
			return nil, fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
		}
		var perr *ProcessError
		if errors.As(err, &perr) {
			w.metrics.ErrorsTotal.WithLabelValues("process").Inc()
		} else {
			w.metrics.ErrorsTotal.WithLabelValues("validation").Inc()
		}
		return nil, err
	}

	return cbResult.(*domain.AuditResult), nil
}

func classifyOutcome(err error) string {
	if err == nil {
		return "success"
	}
	var perr *ProcessError
	if errors.As(err, &perr) {
		if perr.TimedOut {
			return "timeout"
		}
		return "failed"
	}
	return "rejected"
}
