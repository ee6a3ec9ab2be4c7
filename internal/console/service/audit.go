package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sentinelai/compliance-console/internal/agent"
	"github.com/sentinelai/compliance-console/internal/audittrail"
	"github.com/sentinelai/compliance-console/internal/domain"
	"github.com/sentinelai/compliance-console/internal/infra"
	"go.uber.org/zap"
)

// RunRecorder пишет журнал запусков (не блокируя вызов).
type RunRecorder interface {
	Log(event audittrail.RunEvent)
}

// AuditService — прослойка между HTTP и шлюзом запуска агента.
// Нормализует любой исход в единую форму AuditResult, пишет журнал
// и публикует сигнал о завершении в Redis.
type AuditService struct {
	executor       agent.AuditExecutor
	rdb            *redis.Client
	trail          RunRecorder
	defaultAccount string
	logger         *zap.Logger
}

func NewAuditService(executor agent.AuditExecutor, rdb *redis.Client, trail RunRecorder, defaultAccount string, logger *zap.Logger) *AuditService {
	return &AuditService{
		executor:       executor,
		rdb:            rdb,
		trail:          trail,
		defaultAccount: defaultAccount,
		logger:         logger.Named("audit-service"),
	}
}

// RunAudit запускает аудит одного контроля.
// Возвращает (result, nil) и для успеха, и для сбоя процесса — оба случая
// уезжают клиенту со статусом 200. Ошибка возвращается только когда запуск
// отвергнут до спавна (нет requirement_id, мусор в идентификаторах).
func (s *AuditService) RunAudit(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error) {
	if accountID == "" {
		accountID = s.defaultAccount
	}

	start := time.Now()
	result, err := s.executor.Run(ctx, requirementID, accountID)
	durationMs := time.Since(start).Milliseconds()

	event := audittrail.RunEvent{
		ID:            uuid.New().String(),
		TraceID:       infra.TraceIDFromContext(ctx),
		RequirementID: requirementID,
		AWSAccountID:  accountID,
		DurationMs:    durationMs,
		Timestamp:     start,
	}

	switch {
	case err == nil:
		event.Outcome = audittrail.OutcomeSuccess
		s.trail.Log(event)
		s.publishCompletion(ctx, requirementID, accountID, true)

		result.Message = fmt.Sprintf("Audit completed successfully for %s", requirementID)
		return result, nil

	case errors.Is(err, agent.ErrMissingRequirement), errors.Is(err, agent.ErrInvalidIdentifier):
		// Процесс не спавнился — журналируем отказ и отдаем ошибку наверх (400)
		event.Outcome = audittrail.OutcomeRejected
		event.Error = err.Error()
		s.trail.Log(event)
		return nil, err

	default:
		var perr *agent.ProcessError
		if errors.As(err, &perr) {
			if perr.TimedOut {
				event.Outcome = audittrail.OutcomeTimeout
			} else {
				event.Outcome = audittrail.OutcomeFailed
			}
			event.ExitCode = perr.ExitCode
			event.Error = err.Error()
			s.trail.Log(event)
			s.publishCompletion(ctx, requirementID, accountID, false)

			errorOutput := perr.Stderr
			if errorOutput == "" && perr.TimedOut {
				errorOutput = "audit agent timed out"
			}
			if errorOutput == "" && perr.Truncated {
				errorOutput = "audit agent output exceeded buffer limit"
			}
			exitCode := perr.ExitCode
			return &domain.AuditResult{
				Success:       false,
				Message:       fmt.Sprintf("Audit failed for %s", requirementID),
				RequirementID: requirementID,
				Output:        perr.Stdout,
				ErrorOutput:   errorOutput,
				ExitCode:      &exitCode,
			}, nil
		}

		// Limiter/Breaker/прочее: до процесса не дошли, но клиенту отдаем
		// ту же дискриминированную форму success:false
		event.Outcome = audittrail.OutcomeRejected
		event.Error = err.Error()
		s.trail.Log(event)

		s.logger.Warn("audit rejected before spawn",
			zap.String("requirement_id", requirementID), zap.Error(err))
		return &domain.AuditResult{
			Success:       false,
			Message:       fmt.Sprintf("Audit failed for %s", requirementID),
			RequirementID: requirementID,
			ErrorOutput:   err.Error(),
		}, nil
	}
}

// publishCompletion шлет сигнал в Redis best-effort: сбой публикации
// логируется и никогда не портит результат аудита.
func (s *AuditService) publishCompletion(ctx context.Context, requirementID, accountID string, ok bool) {
	if s.rdb == nil {
		return
	}
	payload := infra.AuditCompletionPayload(requirementID, accountID, ok)
	if err := s.rdb.Publish(ctx, infra.RedisChanAuditCompleted, payload).Err(); err != nil {
		s.logger.Warn("completion signal delivery failed",
			zap.String("channel", infra.RedisChanAuditCompleted),
			zap.Error(err))
	}
}
