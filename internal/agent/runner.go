package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sentinelai/compliance-console/internal/domain"
	"github.com/sentinelai/compliance-console/internal/infra"
	"go.uber.org/zap"
)

// identifierPattern — allow-list для requirement_id и aws_account_id.
// Аргументы передаются процессу argv-вектором (никакого shell),
// но валидация отсекает мусор до спавна.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Runner спавнит внешний python-агент и маппит его исход в структурный
// результат. Один вызов — один процесс, никакой очереди и дедупликации:
// конкурентные запуски по одному ключу осознанно гоняются свободно.
type Runner struct {
	cfg    infra.AgentConfig
	logger *zap.Logger
}

func NewRunner(cfg infra.AgentConfig, logger *zap.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		logger: logger.Named("agent-runner"),
	}
}

// Run выполняет один аудит синхронно.
// Возвращает результат при exit 0, иначе typed-ошибку:
// ErrMissingRequirement / ErrInvalidIdentifier до спавна,
// *ProcessError после (ненулевой выход, таймаут, переполнение буфера).
func (r *Runner) Run(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error) {
	if strings.TrimSpace(requirementID) == "" {
		return nil, ErrMissingRequirement
	}
	if accountID == "" {
		accountID = r.cfg.DefaultAccountID
	}
	if !identifierPattern.MatchString(requirementID) {
		return nil, fmt.Errorf("requirement_id %q: %w", requirementID, ErrInvalidIdentifier)
	}
	if !identifierPattern.MatchString(accountID) {
		return nil, fmt.Errorf("aws_account_id %q: %w", accountID, ErrInvalidIdentifier)
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	// argv-вектор: python3 main.py <id> --aws-account <account>
	cmd := exec.CommandContext(runCtx, r.cfg.PythonBin, r.cfg.ScriptPath,
		requirementID, "--aws-account", accountID)
	if r.cfg.WorkDir != "" {
		cmd.Dir = r.cfg.WorkDir
	}

	// Kill по контексту снимает только прямого потомка. Если агент успел
	// наплодить детей, они продолжают держать stdout/stderr — без WaitDelay
	// Run висел бы до выхода последнего из них, и дедлайн превращался бы
	// в фикцию. По истечении грейса pipe принудительно закрывается.
	waitDelay := r.cfg.WaitDelay
	if waitDelay <= 0 {
		waitDelay = 5 * time.Second
	}
	cmd.WaitDelay = waitDelay

	// Общий бюджет на stdout+stderr. При переполнении убиваем процесс
	// через cancel — дальше ждать нечего, буфер и так не примет.
	guard := &outputGuard{budget: r.cfg.MaxOutputBytes, cancel: cancel}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = guard.writer(&stdout)
	cmd.Stderr = guard.writer(&stderr)

	r.logger.Info("starting compliance audit",
		zap.String("requirement_id", requirementID),
		zap.String("aws_account_id", accountID))

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)
	truncated := guard.overflowed()

	// ErrWaitDelay при нулевом выходе: агент отработал, но осиротевший
	// потомок держал pipe дольше грейса. Для вызывающего это успех.
	if errors.Is(runErr, exec.ErrWaitDelay) &&
		cmd.ProcessState != nil && cmd.ProcessState.Success() && !timedOut {
		runErr = nil
	}

	if runErr == nil && !truncated {
		r.logger.Info("compliance audit finished",
			zap.String("requirement_id", requirementID),
			zap.Duration("duration", duration))
		return &domain.AuditResult{
			Success:       true,
			RequirementID: requirementID,
			Output:        strings.TrimSpace(stdout.String()),
		}, nil
	}

	exitCode := 1
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) && exitErr.ExitCode() > 0 {
		exitCode = exitErr.ExitCode()
	}

	perr := &ProcessError{
		ExitCode:  exitCode,
		Stdout:    strings.TrimSpace(stdout.String()),
		Stderr:    strings.TrimSpace(stderr.String()),
		TimedOut:  timedOut && !truncated,
		Truncated: truncated,
		Cause:     runErr,
	}

	r.logger.Warn("compliance audit failed",
		zap.String("requirement_id", requirementID),
		zap.Int("exit_code", exitCode),
		zap.Bool("timed_out", perr.TimedOut),
		zap.Bool("truncated", truncated),
		zap.Duration("duration", duration))

	return nil, perr
}

// outputGuard делит общий байтовый бюджет между stdout и stderr.
type outputGuard struct {
	mu       sync.Mutex
	budget   int64
	overflow bool
	cancel   context.CancelFunc
}

func (g *outputGuard) overflowed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.overflow
}

func (g *outputGuard) writer(dst *bytes.Buffer) *guardedWriter {
	return &guardedWriter{guard: g, dst: dst}
}

type guardedWriter struct {
	guard *outputGuard
	dst   *bytes.Buffer
}

// Write принимает столько, сколько осталось в бюджете. При выходе за лимит
// процесс убивается; остаток потока молча глотаем, чтобы не ронять
// копирующую горутину os/exec.
func (w *guardedWriter) Write(p []byte) (int, error) {
	g := w.guard
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.overflow {
		return len(p), nil
	}

	if int64(len(p)) > g.budget {
		w.dst.Write(p[:g.budget])
		g.budget = 0
		g.overflow = true
		g.cancel()
		return len(p), nil
	}

	g.budget -= int64(len(p))
	return w.dst.Write(p)
}
