package service

import (
	"context"

	"github.com/sentinelai/compliance-console/internal/dashboard"
	"github.com/sentinelai/compliance-console/internal/domain"
	"go.uber.org/zap"
)

// ComplianceRepository описывает требования сервиса к хранилищу комплаенс-данных
type ComplianceRepository interface {
	FetchUserAccounts(ctx context.Context) ([]domain.UserAccount, error)
	FetchRequirementStatuses(ctx context.Context, accountID string) ([]domain.RequirementStatus, error)
}

// AccountsView — назначения плюс производный список аудиторов.
type AccountsView struct {
	Auditors []string             `json:"auditors"`
	Accounts []domain.UserAccount `json:"accounts"`
}

type DashboardService struct {
	repo   ComplianceRepository
	logger *zap.Logger
}

func NewDashboardService(repo ComplianceRepository, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		repo:   repo,
		logger: logger.Named("dashboard-service"),
	}
}

// ListAccounts возвращает все назначения и производный список аудиторов.
// Сбой чтения деградирует в пустой ответ: дашборд показывает "нет данных",
// а не сырую ошибку; причина остается в логе.
func (s *DashboardService) ListAccounts(ctx context.Context) AccountsView {
	accounts, err := s.repo.FetchUserAccounts(ctx)
	if err != nil {
		s.logger.Error("failed to fetch user accounts", zap.Error(err))
		return AccountsView{Auditors: []string{}, Accounts: []domain.UserAccount{}}
	}
	if accounts == nil {
		accounts = []domain.UserAccount{}
	}
	return AccountsView{
		Auditors: dashboard.DeriveAuditors(accounts),
		Accounts: accounts,
	}
}

// AccountsForAuditor — назначения одного аудитора.
func (s *DashboardService) AccountsForAuditor(ctx context.Context, auditorID string) []domain.UserAccount {
	accounts, err := s.repo.FetchUserAccounts(ctx)
	if err != nil {
		s.logger.Error("failed to fetch user accounts",
			zap.String("auditor_id", auditorID), zap.Error(err))
		return []domain.UserAccount{}
	}
	return dashboard.AccountsForAuditor(auditorID, accounts)
}

// BuildSnapshot собирает состояние дашборда для выбранного аккаунта.
// Пустой accountID — легитимное состояние "ничего не выбрано".
// Ошибка чтения сбрасывает view в пустое состояние с нулевыми счетчиками:
// старые данные не остаются смешанными с новыми фильтрами.
func (s *DashboardService) BuildSnapshot(ctx context.Context, accountID, term string, page int) dashboard.Snapshot {
	tracker := dashboard.NewTracker()

	if accountID == "" {
		tracker.Clear()
		return tracker.Snapshot()
	}

	statuses, err := s.repo.FetchRequirementStatuses(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to fetch requirement statuses",
			zap.String("aws_account_id", accountID), zap.Error(err))
		tracker.Clear()
		return tracker.Snapshot()
	}

	tracker.SetStatuses(statuses)
	tracker.SetSearch(term)
	if page > 1 {
		tracker.GoToPage(page) // Выход за диапазон — остаемся на первой
	}
	return tracker.Snapshot()
}
