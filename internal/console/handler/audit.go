package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sentinelai/compliance-console/internal/agent"
	"github.com/sentinelai/compliance-console/internal/domain"
	"go.uber.org/zap"
)

// AuditTrigger Описываем, что нам нужно от сервиса
type AuditTrigger interface {
	RunAudit(ctx context.Context, requirementID, accountID string) (*domain.AuditResult, error)
}

type AuditHandler struct {
	service AuditTrigger
	logger  *zap.Logger
}

func NewAuditHandler(s AuditTrigger, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{service: s, logger: logger.Named("audit-handler")}
}

// RunRequest — тело POST /run-compliance-agent.
// description фронт шлет только для логов, на запуск он не влияет.
type RunRequest struct {
	RequirementID string `json:"requirement_id"`
	AWSAccountID  string `json:"aws_account_id"`
	Description   string `json:"description"`
}

// Run запускает аудит одного контроля
// POST /run-compliance-agent
//
// Контракт исходного API сохранен полностью: сбой процесса — это 200 с
// success:false, а не 5xx; 400 только когда requirement_id не передан.
func (h *AuditHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(h.logger, w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "API execution failed",
			"error":   err.Error(),
		})
		return
	}

	if req.RequirementID == "" {
		writeJSON(h.logger, w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Missing required parameter: requirement_id",
		})
		return
	}

	result, err := h.service.RunAudit(r.Context(), req.RequirementID, req.AWSAccountID)
	if err != nil {
		if errors.Is(err, agent.ErrMissingRequirement) {
			writeJSON(h.logger, w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": "Missing required parameter: requirement_id",
			})
			return
		}
		if errors.Is(err, agent.ErrInvalidIdentifier) {
			writeJSON(h.logger, w, http.StatusBadRequest, map[string]any{
				"success": false,
				"message": err.Error(),
			})
			return
		}
		// Последний рубеж: неожиданная ошибка самого эндпоинта
		writeJSON(h.logger, w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "API execution failed",
			"error":   err.Error(),
		})
		return
	}

	writeJSON(h.logger, w, http.StatusOK, result)
}

// MethodNotAllowed отвечает на GET /run-compliance-agent
func (h *AuditHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.logger, w, http.StatusMethodNotAllowed, map[string]any{
		"message": "Use POST method",
	})
}
