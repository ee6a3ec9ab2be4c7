package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sentinelai/compliance-console/internal/console/service"
	"github.com/sentinelai/compliance-console/internal/dashboard"
	"github.com/sentinelai/compliance-console/internal/domain"
	"go.uber.org/zap"
)

// DashboardProvider Описываем, что нам нужно от сервиса
type DashboardProvider interface {
	ListAccounts(ctx context.Context) service.AccountsView
	AccountsForAuditor(ctx context.Context, auditorID string) []domain.UserAccount
	BuildSnapshot(ctx context.Context, accountID, term string, page int) dashboard.Snapshot
}

type DashboardHandler struct {
	service DashboardProvider
	logger  *zap.Logger
}

func NewDashboardHandler(s DashboardProvider, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: s, logger: logger.Named("dashboard-handler")}
}

// ListAccounts возвращает все назначения и список аудиторов
// GET /api/v1/accounts
func (h *DashboardHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	view := h.service.ListAccounts(r.Context())
	writeJSON(h.logger, w, http.StatusOK, view)
}

// AuditorAccounts возвращает аккаунты одного аудитора
// GET /api/v1/auditors/{auditorID}/accounts
func (h *DashboardHandler) AuditorAccounts(w http.ResponseWriter, r *http.Request) {
	auditorID := chi.URLParam(r, "auditorID")
	if auditorID == "" {
		http.Error(w, "auditorID is required", http.StatusBadRequest)
		return
	}
	accounts := h.service.AccountsForAuditor(r.Context(), auditorID)
	writeJSON(h.logger, w, http.StatusOK, accounts)
}

// GetDashboard собирает состояние дашборда для выбранного аккаунта
// GET /api/v1/dashboard?aws_account_id=...&search=...&page=N
// Пустой aws_account_id и сбой чтения дают одинаковый "пустой" ответ:
// нулевые счетчики, пустая страница.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountID := q.Get("aws_account_id")
	term := q.Get("search")

	page := 1
	if raw := q.Get("page"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			page = parsed // Выход за диапазон разрулит view-model (no-op)
		}
	}

	snapshot := h.service.BuildSnapshot(r.Context(), accountID, term, page)
	writeJSON(h.logger, w, http.StatusOK, snapshot)
}

// writeJSON — единая точка сериализации ответов.
// Статус уже ушел клиенту, так что сбой кодирования можно только залогировать.
func writeJSON(logger *zap.Logger, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encoding failed", zap.Int("status", code), zap.Error(err))
	}
}
